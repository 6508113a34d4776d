package database

import (
	"path/filepath"
	"testing"

	"edu-insight-go/internal/config"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSNFromFields(t *testing.T) {
	dsn, err := BuildDSN(config.MySQLConfig{
		Host:     "gateway.example.com",
		Port:     4000,
		User:     "student",
		Password: "p@ss",
		Name:     "school",
		TLS:      true,
	})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "student", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "gateway.example.com:4000", parsed.Addr)
	assert.Equal(t, "school", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, "true", parsed.TLSConfig)
}

func TestBuildDSNPrefersExplicitDSN(t *testing.T) {
	dsn, err := BuildDSN(config.MySQLConfig{DSN: "u:p@tcp(h:1)/d", Host: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(h:1)/d", dsn)
}

func TestBuildDSNMissingCAFile(t *testing.T) {
	_, err := BuildDSN(config.MySQLConfig{
		Host:      "h",
		Port:      4000,
		SSLCAPath: filepath.Join(t.TempDir(), "missing.pem"),
	})
	assert.Error(t, err)
}
