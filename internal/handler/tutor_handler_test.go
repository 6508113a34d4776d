package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"edu-insight-go/internal/config"
	"edu-insight-go/internal/middleware"
	"edu-insight-go/internal/model"
	"edu-insight-go/internal/repository"
	"edu-insight-go/internal/service"
	"edu-insight-go/pkg/llm"
	"edu-insight-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	chunks []string
	err    error
}

func (s scriptedLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	for _, c := range s.chunks {
		if err := writer.WriteMessage(websocket.TextMessage, []byte(c)); err != nil {
			return err
		}
	}
	return s.err
}

type noopNotifier struct{}

func (noopNotifier) NotifyTopic(studentID, text string) {}

func tutorRouter(t *testing.T, client llm.Client) *gin.Engine {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.StudentPerformance{StudentID: "S001", Name: "Ada"}).Error)

	jwtManager := token.NewJWTManager("secret", 1)
	svc := service.NewTutorService(
		repository.NewStudentRepository(db),
		repository.NewMemoryChatSessionRepository(),
		client,
		noopNotifier{},
		jwtManager,
		config.LLMConfig{Model: "gemini"},
		config.TutorConfig{DefaultTitle: "New Chat", TitleMaxLength: 40},
	)

	r := gin.New()
	h := NewTutorHandler(svc)
	r.POST("/api/v1/login", h.Login)
	r.POST("/api/v1/logout", middleware.AuthMiddleware(jwtManager, svc), h.Logout)
	chats := r.Group("/api/v1/chats")
	chats.Use(middleware.AuthMiddleware(jwtManager, svc))
	chats.GET("", h.ListChats)
	chats.POST("", h.CreateChat)
	chats.DELETE("/:chatId", h.DeleteChat)
	chats.PUT("/:chatId/active", h.SelectChat)
	chats.GET("/:chatId/messages", h.GetMessages)
	r.GET("/chat/:token", NewChatHandler(svc, jwtManager).Handle)
	return r
}

type sessionView struct {
	ActiveChat string        `json:"activeChat"`
	Chats      []ChatSummary `json:"chats"`
}

func login(t *testing.T, r http.Handler) (string, sessionView) {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/v1/login", `{"studentId":"S001"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token   string      `json:"token"`
		Session sessionView `json:"session"`
	}
	decodeData(t, w, &data)
	return data.Token, data.Session
}

func TestLoginUnknownStudent(t *testing.T) {
	r := tutorRouter(t, scriptedLLM{})
	w := doJSON(r, http.MethodPost, "/api/v1/login", `{"studentId":"S404"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatsRequireToken(t *testing.T) {
	r := tutorRouter(t, scriptedLLM{})
	w := doJSON(r, http.MethodGet, "/api/v1/chats", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(r, http.MethodGet, "/api/v1/chats", "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatLifecycle(t *testing.T) {
	r := tutorRouter(t, scriptedLLM{})
	tok, session := login(t, r)
	auth := []string{"Authorization", "Bearer " + tok}
	require.Len(t, session.Chats, 1)
	first := session.ActiveChat

	w := doJSON(r, http.MethodPost, "/api/v1/chats", "", auth...)
	require.Equal(t, http.StatusOK, w.Code)
	var thread model.ChatThread
	decodeData(t, w, &thread)
	assert.Equal(t, "New Chat", thread.Title)

	w = doJSON(r, http.MethodPut, "/api/v1/chats/"+first+"/active", "", auth...)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/chats", "", auth...)
	var listed sessionView
	decodeData(t, w, &listed)
	assert.Equal(t, first, listed.ActiveChat)
	assert.Len(t, listed.Chats, 2)

	w = doJSON(r, http.MethodDelete, "/api/v1/chats/"+first, "", auth...)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &listed)
	assert.Equal(t, thread.ID, listed.ActiveChat)

	w = doJSON(r, http.MethodGet, "/api/v1/chats/missing/messages", "", auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func dialChat(t *testing.T, srv *httptest.Server, tok string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn) []map[string]interface{} {
	t.Helper()
	var frames []map[string]interface{}
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var f map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &f))
		frames = append(frames, f)
		if f["type"] == "completion" {
			return frames
		}
	}
}

func TestWebSocketStreamsAndRenames(t *testing.T) {
	r := tutorRouter(t, scriptedLLM{chunks: []string{"Cells ", "divide."}})
	srv := httptest.NewServer(r)
	defer srv.Close()

	tok, session := login(t, r)
	conn := dialChat(t, srv, tok)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"chat_id": session.ActiveChat, "content": "What is mitosis?"}))
	frames := readFrames(t, conn)
	require.Len(t, frames, 3)
	assert.Equal(t, "Cells ", frames[0]["chunk"])
	assert.Equal(t, "divide.", frames[1]["chunk"])
	assert.Equal(t, "finished", frames[2]["status"])
	assert.Equal(t, "What is mitosis?", frames[2]["title"])
}

func TestWebSocketStreamError(t *testing.T) {
	r := tutorRouter(t, scriptedLLM{chunks: []string{"Half"}, err: errors.New("stream reset")})
	srv := httptest.NewServer(r)
	defer srv.Close()

	tok, _ := login(t, r)
	conn := dialChat(t, srv, tok)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"content": "Explain entropy"}))
	frames := readFrames(t, conn)
	require.Len(t, frames, 3)
	assert.Equal(t, "Half", frames[0]["chunk"])
	assert.Equal(t, "LLM error: stream reset", frames[1]["error"])
	assert.Equal(t, "error", frames[2]["status"])
	assert.Equal(t, "New Chat", frames[2]["title"])
}

func TestLogoutInvalidatesToken(t *testing.T) {
	r := tutorRouter(t, scriptedLLM{})
	tok, _ := login(t, r)
	auth := []string{"Authorization", "Bearer " + tok}

	w := doJSON(r, http.MethodPost, "/api/v1/logout", "", auth...)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/chats", "", auth...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	r := tutorRouter(t, scriptedLLM{})
	w := doJSON(r, http.MethodGet, "/chat/garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
