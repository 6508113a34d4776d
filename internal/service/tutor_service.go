package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"edu-insight-go/internal/config"
	"edu-insight-go/internal/model"
	"edu-insight-go/internal/repository"
	"edu-insight-go/pkg/llm"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/notify"
	"edu-insight-go/pkg/token"

	"github.com/google/uuid"
)

// TutorService 管理学生登录后的多线程聊天会话。
type TutorService interface {
	// Login 校验学生是否存在，创建带一个默认线程的新会话并签发 token。
	Login(ctx context.Context, studentID string) (string, *model.TutorSession, error)
	Session(ctx context.Context, sessionID string) (*model.TutorSession, error)
	NewChat(ctx context.Context, sessionID string) (*model.ChatThread, error)
	// DeleteChat 删除线程。删掉最后一个线程时会自动新建一个。
	DeleteChat(ctx context.Context, sessionID, chatID string) (*model.TutorSession, error)
	SelectChat(ctx context.Context, sessionID, chatID string) error
	History(ctx context.Context, sessionID, chatID string) ([]model.ChatMessage, error)
	// Logout 删除会话，之后该会话的 token 不再可用。
	Logout(ctx context.Context, sessionID string) error
	// SendMessage 处理一轮对话，增量通过 writer 以 {"chunk": ...} 帧下发。
	// 返回完整回复和线程当前标题。流式失败时助手消息不入库，标题不变。
	SendMessage(ctx context.Context, sessionID, chatID, prompt string, writer llm.MessageWriter) (string, string, error)
}

type tutorService struct {
	students   repository.StudentRepository
	sessions   repository.ChatSessionRepository
	llmClient  llm.Client
	notifier   notify.Notifier
	jwtManager *token.JWTManager
	llmCfg     config.LLMConfig
	tutorCfg   config.TutorConfig

	locks sessionLocks
}

// sessionLocks 按会话串行化读改写。条目在最后一个持有者释放时删除，
// map 中只保留正在使用的会话。
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func (l *sessionLocks) acquire(sessionID string) func() {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*sessionLock)
	}
	e, ok := l.entries[sessionID]
	if !ok {
		e = &sessionLock{}
		l.entries[sessionID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, sessionID)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// NewTutorService 创建一个新的 TutorService 实例。
func NewTutorService(
	students repository.StudentRepository,
	sessions repository.ChatSessionRepository,
	llmClient llm.Client,
	notifier notify.Notifier,
	jwtManager *token.JWTManager,
	llmCfg config.LLMConfig,
	tutorCfg config.TutorConfig,
) TutorService {
	if tutorCfg.DefaultTitle == "" {
		tutorCfg.DefaultTitle = "New Chat"
	}
	if tutorCfg.TitleMaxLength <= 0 {
		tutorCfg.TitleMaxLength = 40
	}
	return &tutorService{
		students:   students,
		sessions:   sessions,
		llmClient:  llmClient,
		notifier:   notifier,
		jwtManager: jwtManager,
		llmCfg:     llmCfg,
		tutorCfg:   tutorCfg,
	}
}

func (s *tutorService) lock(sessionID string) func() {
	return s.locks.acquire(sessionID)
}

func (s *tutorService) newThread() *model.ChatThread {
	return &model.ChatThread{
		ID:        uuid.NewString(),
		Title:     s.tutorCfg.DefaultTitle,
		Model:     s.llmCfg.Model,
		Messages:  []model.ChatMessage{},
		CreatedAt: time.Now(),
	}
}

func (s *tutorService) Login(ctx context.Context, studentID string) (string, *model.TutorSession, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return "", nil, ErrStudentNotFound
	}
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up student: %w", err)
	}
	if !exists {
		return "", nil, ErrStudentNotFound
	}

	now := time.Now()
	session := &model.TutorSession{
		ID:        uuid.NewString(),
		StudentID: studentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.AddChat(s.newThread())
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to save tutor session: %w", err)
	}

	tok, err := s.jwtManager.GenerateToken(studentID, session.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	log.Infow("学生登录 tutor", "student_id", studentID, "session_id", session.ID)
	return tok, session, nil
}

func (s *tutorService) Session(ctx context.Context, sessionID string) (*model.TutorSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionExpired
	}
	return session, err
}

func (s *tutorService) save(ctx context.Context, session *model.TutorSession) error {
	session.UpdatedAt = time.Now()
	return s.sessions.Save(ctx, session)
}

func (s *tutorService) Logout(ctx context.Context, sessionID string) error {
	defer s.lock(sessionID)()
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete tutor session: %w", err)
	}
	log.Infow("学生退出 tutor", "session_id", sessionID)
	return nil
}

func (s *tutorService) NewChat(ctx context.Context, sessionID string) (*model.ChatThread, error) {
	defer s.lock(sessionID)()
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	thread := s.newThread()
	session.AddChat(thread)
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return thread, nil
}

func (s *tutorService) DeleteChat(ctx context.Context, sessionID, chatID string) (*model.TutorSession, error) {
	defer s.lock(sessionID)()
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.RemoveChat(chatID) {
		return nil, ErrChatNotFound
	}
	if len(session.Order) == 0 {
		session.AddChat(s.newThread())
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *tutorService) SelectChat(ctx context.Context, sessionID, chatID string) error {
	defer s.lock(sessionID)()
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, ok := session.Chat(chatID); !ok {
		return ErrChatNotFound
	}
	session.ActiveChat = chatID
	return s.save(ctx, session)
}

func (s *tutorService) History(ctx context.Context, sessionID, chatID string) ([]model.ChatMessage, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	thread, ok := session.Chat(chatID)
	if !ok {
		return nil, ErrChatNotFound
	}
	return thread.Messages, nil
}

func (s *tutorService) SendMessage(ctx context.Context, sessionID, chatID, prompt string, writer llm.MessageWriter) (string, string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", "", ErrEmptyMessage
	}

	// 1. 追加用户消息并持久化
	studentID, history, title, err := s.appendUserMessage(ctx, sessionID, chatID, prompt)
	if err != nil {
		return "", "", err
	}

	// 2. 发出即忘的主题通知，不等待结果
	s.notifier.NotifyTopic(studentID, prompt)

	// 3. 流式调用对话模型，拦截 writer 以捕获完整答案
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: writer, writer: answerBuilder}
	if err := s.llmClient.StreamChatMessages(ctx, s.composeMessages(history), nil, interceptor); err != nil {
		log.Errorw("对话模型流式响应失败", "session_id", sessionID, "chat_id", chatID, "error", err)
		return answerBuilder.String(), title, err
	}

	// 4. 提交回复并按需重命名。使用后台上下文，客户端断开也要保存已生成的答案
	reply := answerBuilder.String()
	title, err = s.commitReply(context.Background(), sessionID, chatID, prompt, reply)
	if err != nil {
		log.Errorf("保存助手回复失败: %v", err)
	}
	return reply, title, nil
}

func (s *tutorService) appendUserMessage(ctx context.Context, sessionID, chatID, prompt string) (string, []model.ChatMessage, string, error) {
	defer s.lock(sessionID)()
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return "", nil, "", err
	}
	thread, ok := session.Chat(chatID)
	if !ok {
		return "", nil, "", ErrChatNotFound
	}
	thread.Messages = append(thread.Messages, model.ChatMessage{
		Role:      model.RoleUser,
		Content:   prompt,
		Timestamp: time.Now(),
	})
	session.ActiveChat = chatID
	if err := s.save(ctx, session); err != nil {
		return "", nil, "", fmt.Errorf("failed to save user message: %w", err)
	}
	history := make([]model.ChatMessage, len(thread.Messages))
	copy(history, thread.Messages)
	return session.StudentID, history, thread.Title, nil
}

func (s *tutorService) commitReply(ctx context.Context, sessionID, chatID, prompt, reply string) (string, error) {
	defer s.lock(sessionID)()
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	thread, ok := session.Chat(chatID)
	if !ok {
		// 流式期间线程已被删除
		return "", ErrChatNotFound
	}
	thread.Messages = append(thread.Messages, model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	})
	if thread.Title == s.tutorCfg.DefaultTitle {
		thread.Title = ChatTitle(prompt, s.tutorCfg.TitleMaxLength)
	}
	return thread.Title, s.save(ctx, session)
}

// ChatTitle 取 prompt 的前 max 个字符作为标题，换行替换为空格。
func ChatTitle(prompt string, max int) string {
	runes := []rune(prompt)
	if len(runes) > max {
		runes = runes[:max]
	}
	return strings.ReplaceAll(string(runes), "\n", " ")
}

func (s *tutorService) composeMessages(history []model.ChatMessage) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	if s.llmCfg.SystemInstruction != "" {
		msgs = append(msgs, llm.Message{Role: model.RoleSystem, Content: s.llmCfg.SystemInstruction})
	}
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// wsWriterInterceptor 包装下游 writer，捕获写入的内容。
type wsWriterInterceptor struct {
	conn   llm.MessageWriter
	writer *strings.Builder
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	b, _ := json.Marshal(map[string]string{"chunk": string(data)})
	return w.conn.WriteMessage(messageType, b)
}
