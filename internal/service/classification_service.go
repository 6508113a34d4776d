package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edu-insight-go/internal/model"
	"edu-insight-go/internal/repository"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/metrics"
	"edu-insight-go/pkg/tasks"
	"edu-insight-go/pkg/zeroshot"
)

// ClassificationService 识别一段文本所属的学科，并把结果写入预测日志。
type ClassificationService interface {
	// Predict 返回 model.Subjects 中的一个标签。空白文本返回 ErrEmptyText，不做分类也不写库。
	Predict(ctx context.Context, studentID, text string) (string, error)
	// Process 处理来自 Kafka 的主题识别任务，流程与 Predict 相同。
	Process(ctx context.Context, task tasks.TopicDetectionTask) error
}

type classificationService struct {
	classifier zeroshot.Client
	logRepo    repository.PredictionLogRepository
	now        func() time.Time
}

// NewClassificationService 创建一个新的 ClassificationService 实例。
func NewClassificationService(classifier zeroshot.Client, logRepo repository.PredictionLogRepository) ClassificationService {
	return &classificationService{
		classifier: classifier,
		logRepo:    logRepo,
		now:        time.Now,
	}
}

func (s *classificationService) Predict(ctx context.Context, studentID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	start := time.Now()
	result, err := s.classifier.Classify(ctx, text, model.Subjects)
	metrics.ClassifyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionFailures.WithLabelValues(metrics.StageClassify).Inc()
		log.Errorw("学科分类失败", "student_id", studentID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}
	subject, score, err := result.Best(model.Subjects)
	if err != nil {
		metrics.PredictionFailures.WithLabelValues(metrics.StageClassify).Inc()
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}

	entry := &model.PredictionLog{
		StudentID:      studentID,
		InputSample:    text,
		Subject:        subject,
		PredictionTime: s.now(),
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		// 写库失败后本次预测直接丢弃，不重试
		metrics.PredictionFailures.WithLabelValues(metrics.StageLogWrite).Inc()
		log.Errorw("写入预测日志失败", "student_id", studentID, "subject", subject, "error", err)
		return "", fmt.Errorf("%w: %w", ErrLogWrite, err)
	}

	metrics.Predictions.WithLabelValues(subject).Inc()
	log.Infow("学科预测完成", "student_id", studentID, "subject", subject, "score", score)
	return subject, nil
}

func (s *classificationService) Process(ctx context.Context, task tasks.TopicDetectionTask) error {
	_, err := s.Predict(ctx, task.StudentID, task.Text)
	return err
}
