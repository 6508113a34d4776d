package model

import "time"

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage 代表一个聊天线程中的单条消息。
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatThread 是一个独立的对话线程，绑定一个远端对话上下文（模型 + 历史）。
type ChatThread struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
}

// TutorSession 是一次登录会话持有的全部聊天线程。
// Order 记录线程的创建顺序，Chats 按 ID 索引。
type TutorSession struct {
	ID         string                 `json:"id"`
	StudentID  string                 `json:"studentId"`
	Chats      map[string]*ChatThread `json:"chats"`
	Order      []string               `json:"order"`
	ActiveChat string                 `json:"activeChat"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// Chat 按 ID 查找线程。
func (s *TutorSession) Chat(id string) (*ChatThread, bool) {
	t, ok := s.Chats[id]
	return t, ok
}

// AddChat 追加一个线程并设为当前线程。
func (s *TutorSession) AddChat(t *ChatThread) {
	if s.Chats == nil {
		s.Chats = make(map[string]*ChatThread)
	}
	s.Chats[t.ID] = t
	s.Order = append(s.Order, t.ID)
	s.ActiveChat = t.ID
}

// RemoveChat 删除线程。若删除的是当前线程，当前线程移到剩余的第一个。
func (s *TutorSession) RemoveChat(id string) bool {
	if _, ok := s.Chats[id]; !ok {
		return false
	}
	delete(s.Chats, id)
	order := s.Order[:0]
	for _, cid := range s.Order {
		if cid != id {
			order = append(order, cid)
		}
	}
	s.Order = order
	if s.ActiveChat == id {
		s.ActiveChat = ""
		if len(s.Order) > 0 {
			s.ActiveChat = s.Order[0]
		}
	}
	return true
}

// Threads 按创建顺序返回所有线程。
func (s *TutorSession) Threads() []*ChatThread {
	out := make([]*ChatThread, 0, len(s.Order))
	for _, id := range s.Order {
		if t, ok := s.Chats[id]; ok {
			out = append(out, t)
		}
	}
	return out
}
