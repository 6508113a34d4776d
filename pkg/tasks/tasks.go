// Package tasks defines the payloads exchanged over Kafka.
package tasks

import "time"

// TopicDetectionTask 是 tutor 发给 predictor 的一次主题识别请求，对应 POST /predict 的请求体。
type TopicDetectionTask struct {
	StudentID string    `json:"student_id"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
}
