package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", 1)
	tok, err := m.GenerateToken("S001", "sess-1")
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "S001", claims.StudentID)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	tok, err := NewJWTManager("a", 1).GenerateToken("S001", "sess-1")
	require.NoError(t, err)

	_, err = NewJWTManager("b", 1).VerifyToken(tok)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewJWTManager("a", 1).VerifyToken("not-a-token")
	assert.Error(t, err)
}
