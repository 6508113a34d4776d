// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"edu-insight-go/internal/config"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// ErrProducerNotInitialized 表示在 InitProducer 之前调用了 ProduceTopicTask。
var ErrProducerNotInitialized = errors.New("kafka producer not initialized")

// TaskProcessor defines the interface for any service that can process a topic detection task.
// This decouples the Kafka consumer from the classification service.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.TopicDetectionTask) error
}

var producer *kafka.Writer

// fetchRetryDelay 是读取消息失败后重新拉取前的等待时间。
var fetchRetryDelay = 2 * time.Second

// Brokers 把逗号分隔的 broker 列表拆分为切片。
func Brokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:                   kafka.TCP(Brokers(cfg.Brokers)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceTopicTask 发送一个主题识别任务到 Kafka。
func ProduceTopicTask(ctx context.Context, task tasks.TopicDetectionTask) error {
	if producer == nil {
		return ErrProducerNotInitialized
	}
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.StudentID),
		Value: taskBytes,
	})
}

// CloseProducer 关闭生产者，未初始化时什么也不做。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// messageReader 是 kafka.Reader 中消费循环用到的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer 启动一个 Kafka 消费者来处理主题识别任务，ctx 取消后返回。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  Brokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, processor)
}

// consume 对每条消息只处理一次，无论成功与否都提交 offset。
// 分类结果与原 HTTP 路径一样，失败即丢弃，不做重试。
func consume(ctx context.Context, r messageReader, processor TaskProcessor) {
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者停止")
				return
			}
			log.Error("从 Kafka 读取消息失败，稍后重试", err)
			select {
			case <-ctx.Done():
				log.Info("Kafka 消费者停止")
				return
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		logger := log.With("partition", m.Partition, "offset", m.Offset)
		var task tasks.TopicDetectionTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			logger.Errorw("无法解析 Kafka 消息", "error", err, "value", string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		if err := processor.Process(ctx, task); err != nil {
			logger.Errorw("主题识别任务处理失败，丢弃", "student_id", task.StudentID, "error", err)
		}
		commit(ctx, r, m)
	}
}

func commit(ctx context.Context, r messageReader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
