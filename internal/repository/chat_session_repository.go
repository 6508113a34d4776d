package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"edu-insight-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// ErrSessionNotFound 表示会话不存在或已过期。
var ErrSessionNotFound = errors.New("tutor session not found")

// ChatSessionRepository 定义了 tutor 会话（多个聊天线程）的存取接口。
type ChatSessionRepository interface {
	Get(ctx context.Context, sessionID string) (*model.TutorSession, error)
	Save(ctx context.Context, session *model.TutorSession) error
	Delete(ctx context.Context, sessionID string) error
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("tutor:session:%s", sessionID)
}

type redisChatSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisChatSessionRepository 创建基于 Redis 的会话存储，整个会话以 JSON 保存并带过期时间。
func NewRedisChatSessionRepository(redisClient *redis.Client, ttl time.Duration) ChatSessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisChatSessionRepository{redisClient: redisClient, ttl: ttl}
}

func (r *redisChatSessionRepository) Get(ctx context.Context, sessionID string) (*model.TutorSession, error) {
	data, err := r.redisClient.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tutor session: %w", err)
	}
	var s model.TutorSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tutor session: %w", err)
	}
	return &s, nil
}

func (r *redisChatSessionRepository) Save(ctx context.Context, session *model.TutorSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal tutor session: %w", err)
	}
	if err := r.redisClient.Set(ctx, sessionKey(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set tutor session: %w", err)
	}
	return nil
}

func (r *redisChatSessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.redisClient.Del(ctx, sessionKey(sessionID)).Err()
}

// memoryChatSessionRepository 是进程内实现，未配置 Redis 时使用。
// 以 JSON 形式保存副本，调用方拿到的对象互不共享。
type memoryChatSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryChatSessionRepository 创建进程内会话存储，进程重启后数据丢失。
func NewMemoryChatSessionRepository() ChatSessionRepository {
	return &memoryChatSessionRepository{sessions: make(map[string][]byte)}
}

func (r *memoryChatSessionRepository) Get(ctx context.Context, sessionID string) (*model.TutorSession, error) {
	r.mu.RLock()
	data, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var s model.TutorSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *memoryChatSessionRepository) Save(ctx context.Context, session *model.TutorSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sessions[session.ID] = data
	r.mu.Unlock()
	return nil
}

func (r *memoryChatSessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	return nil
}
