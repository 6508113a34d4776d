// Package notify 实现 tutor 向主题识别服务发送的“发出即忘”通知。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"edu-insight-go/internal/config"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/metrics"
	"edu-insight-go/pkg/tasks"
)

// Notifier 发送一次主题通知。NotifyTopic 必须立即返回，失败只记录日志。
type Notifier interface {
	NotifyTopic(studentID, text string)
}

// TaskProducer 把任务写入消息队列，kafka.ProduceTopicTask 满足该签名。
type TaskProducer func(ctx context.Context, task tasks.TopicDetectionTask) error

// New 按 topic.transport 选择实现。
func New(cfg config.TopicConfig, produce TaskProducer) Notifier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if strings.EqualFold(cfg.Transport, "kafka") {
		return NewKafkaNotifier(produce, timeout)
	}
	return NewHTTPNotifier(cfg.Endpoint, timeout)
}

// HTTPNotifier 直接 POST 到 /predict。
type HTTPNotifier struct {
	endpoint string
	client   *http.Client
	// done 在测试中用于等待后台请求结束
	done func()
}

// NewHTTPNotifier 创建 HTTPNotifier，timeout 非正时使用 25 秒。
func NewHTTPNotifier(endpoint string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &HTTPNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	StudentID string `json:"student_id"`
	Text      string `json:"text"`
}

// NotifyTopic 在后台 goroutine 中发送请求，响应内容被丢弃。
func (n *HTTPNotifier) NotifyTopic(studentID, text string) {
	go func() {
		if n.done != nil {
			defer n.done()
		}
		if err := n.post(studentID, text); err != nil {
			metrics.TopicNotifications.WithLabelValues("error").Inc()
			log.Warnw("主题通知发送失败", "student_id", studentID, "error", err)
			return
		}
		metrics.TopicNotifications.WithLabelValues("ok").Inc()
	}()
}

func (n *HTTPNotifier) post(studentID, text string) error {
	body, err := json.Marshal(predictRequest{StudentID: studentID, Text: text})
	if err != nil {
		return err
	}
	resp, err := n.client.Post(n.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("topic endpoint returned status: %s", resp.Status)
	}
	return nil
}

// KafkaNotifier 把通知作为 TopicDetectionTask 写入 Kafka，由 predictor 的消费者处理。
type KafkaNotifier struct {
	produce TaskProducer
	timeout time.Duration
	done    func()
}

// NewKafkaNotifier 创建 KafkaNotifier。
func NewKafkaNotifier(produce TaskProducer, timeout time.Duration) *KafkaNotifier {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &KafkaNotifier{produce: produce, timeout: timeout}
}

// NotifyTopic 在后台 goroutine 中投递任务。
func (n *KafkaNotifier) NotifyTopic(studentID, text string) {
	go func() {
		if n.done != nil {
			defer n.done()
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		task := tasks.TopicDetectionTask{StudentID: studentID, Text: text, SentAt: time.Now()}
		if err := n.produce(ctx, task); err != nil {
			metrics.TopicNotifications.WithLabelValues("error").Inc()
			log.Warnw("主题任务投递失败", "student_id", studentID, "error", err)
			return
		}
		metrics.TopicNotifications.WithLabelValues("ok").Inc()
	}()
}
