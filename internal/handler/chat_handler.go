package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"edu-insight-go/internal/service"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理 WebSocket 聊天连接。
type ChatHandler struct {
	tutorService service.TutorService
	jwtManager   *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(tutorService service.TutorService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		tutorService: tutorService,
		jwtManager:   jwtManager,
	}
}

// chatFrame 是客户端发送的一轮对话。ChatID 为空时使用当前线程。
type chatFrame struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

func writeJSON(conn *websocket.Conn, v interface{}) {
	b, _ := json.Marshal(v)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func sendCompletion(conn *websocket.Conn, status, chatID, title string) {
	writeJSON(conn, map[string]interface{}{
		"type":      "completion",
		"status":    status,
		"chatId":    chatID,
		"title":     title,
		"timestamp": time.Now().UnixMilli(),
	})
}

// Handle 处理一个传入的 WebSocket 连接。
func (h *ChatHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}
	if _, err := h.tutorService.Session(c.Request.Context(), claims.SessionID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "会话已过期，请重新登录", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，学生: %s", claims.StudentID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			return
		}

		var frame chatFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			writeJSON(conn, map[string]string{"error": "invalid message format"})
			continue
		}
		if frame.ChatID == "" {
			session, err := h.tutorService.Session(c.Request.Context(), claims.SessionID)
			if err != nil {
				writeJSON(conn, map[string]string{"error": "会话已过期，请重新登录"})
				return
			}
			frame.ChatID = session.ActiveChat
		}

		_, title, err := h.tutorService.SendMessage(c.Request.Context(), claims.SessionID, frame.ChatID, frame.Content, conn)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSessionExpired):
				writeJSON(conn, map[string]string{"error": "会话已过期，请重新登录"})
				return
			case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrChatNotFound):
				writeJSON(conn, map[string]string{"error": err.Error()})
			default:
				// 已下发的部分内容保留在页面上，不重试
				writeJSON(conn, map[string]string{"error": "LLM error: " + err.Error()})
			}
			sendCompletion(conn, "error", frame.ChatID, title)
			continue
		}
		sendCompletion(conn, "finished", frame.ChatID, title)
	}
}
