package handler

import (
	"errors"
	"net/http"

	"edu-insight-go/internal/middleware"
	"edu-insight-go/internal/model"
	"edu-insight-go/internal/service"
	"edu-insight-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// TutorHandler 负责登录与聊天线程管理的 REST 接口。
type TutorHandler struct {
	tutorService service.TutorService
}

// NewTutorHandler 创建一个新的 TutorHandler 实例。
func NewTutorHandler(tutorService service.TutorService) *TutorHandler {
	return &TutorHandler{tutorService: tutorService}
}

// LoginRequest 定义了登录 API 的请求体结构。
type LoginRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}

// ChatSummary 是线程列表中的一项。
type ChatSummary struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	MessageCount int             `json:"messageCount"`
	CreatedAt    model.LocalTime `json:"createdAt"`
}

func summarize(session *model.TutorSession) gin.H {
	chats := make([]ChatSummary, 0, len(session.Order))
	for _, t := range session.Threads() {
		chats = append(chats, ChatSummary{ID: t.ID, Title: t.Title, MessageCount: len(t.Messages), CreatedAt: model.LocalTime(t.CreatedAt)})
	}
	return gin.H{"studentId": session.StudentID, "activeChat": session.ActiveChat, "chats": chats}
}

func currentSession(c *gin.Context) *model.TutorSession {
	return c.MustGet(middleware.ContextSession).(*model.TutorSession)
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// Login 处理学生登录。学生 ID 必须存在于 student_performance 表中。
func (h *TutorHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "studentId 不能为空")
		return
	}

	tok, session, err := h.tutorService.Login(c.Request.Context(), req.StudentID)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			respondError(c, http.StatusUnauthorized, "Student ID not found")
			return
		}
		log.Errorf("Login: 登录失败, error: %v", err)
		respondError(c, http.StatusInternalServerError, "登录失败")
		return
	}

	respondOK(c, gin.H{"token": tok, "session": summarize(session)})
}

// ListChats 返回当前会话的全部线程。
func (h *TutorHandler) ListChats(c *gin.Context) {
	respondOK(c, summarize(currentSession(c)))
}

// CreateChat 新建一个线程并设为当前线程。
func (h *TutorHandler) CreateChat(c *gin.Context) {
	thread, err := h.tutorService.NewChat(c.Request.Context(), currentSession(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, thread)
}

// DeleteChat 删除线程。
func (h *TutorHandler) DeleteChat(c *gin.Context) {
	session, err := h.tutorService.DeleteChat(c.Request.Context(), currentSession(c).ID, c.Param("chatId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, summarize(session))
}

// SelectChat 切换当前线程。
func (h *TutorHandler) SelectChat(c *gin.Context) {
	if err := h.tutorService.SelectChat(c.Request.Context(), currentSession(c).ID, c.Param("chatId")); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, gin.H{"activeChat": c.Param("chatId")})
}

// GetMessages 返回线程的消息历史。
func (h *TutorHandler) GetMessages(c *gin.Context) {
	messages, err := h.tutorService.History(c.Request.Context(), currentSession(c).ID, c.Param("chatId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, messages)
}

// Logout 删除当前会话。
func (h *TutorHandler) Logout(c *gin.Context) {
	if err := h.tutorService.Logout(c.Request.Context(), currentSession(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, nil)
}

func (h *TutorHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrChatNotFound):
		respondError(c, http.StatusNotFound, "chat not found")
	case errors.Is(err, service.ErrSessionExpired):
		respondError(c, http.StatusUnauthorized, "会话已过期，请重新登录")
	default:
		log.Errorf("tutor 请求失败: %v", err)
		respondError(c, http.StatusInternalServerError, "服务器内部错误")
	}
}
