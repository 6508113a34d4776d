package service

import "errors"

// 业务层的哨兵错误，handler 用 errors.Is 映射到 HTTP 状态码。
var (
	ErrEmptyText       = errors.New("empty text")
	ErrClassification  = errors.New("classification failed")
	ErrLogWrite        = errors.New("prediction log write failed")
	ErrStudentNotFound = errors.New("student not found")
	ErrChatNotFound    = errors.New("chat not found")
	ErrEmptyMessage    = errors.New("empty message")
	ErrSessionExpired  = errors.New("tutor session expired")

	// ErrIncompleteFeatures 表示学生记录中有模型需要的列为 NULL。
	ErrIncompleteFeatures = errors.New("incomplete student features")
)
