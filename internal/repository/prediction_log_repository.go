package repository

import (
	"context"

	"edu-insight-go/internal/model"

	"gorm.io/gorm"
)

// PredictionLogRepository 只负责向 log_table 追加记录。
type PredictionLogRepository interface {
	Create(ctx context.Context, entry *model.PredictionLog) error
}

type predictionLogRepository struct {
	db *gorm.DB
}

// NewPredictionLogRepository 创建一个新的 PredictionLogRepository 实例。
func NewPredictionLogRepository(db *gorm.DB) PredictionLogRepository {
	return &predictionLogRepository{db: db}
}

// Create 执行单条自动提交的 INSERT。
func (r *predictionLogRepository) Create(ctx context.Context, entry *model.PredictionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
