// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"

	"edu-insight-go/internal/model"

	"gorm.io/gorm"
)

// StudentRepository 定义了 student_performance 表的只读操作。
type StudentRepository interface {
	// FindByStudentID 查找单个学生，不存在时返回 gorm.ErrRecordNotFound。
	FindByStudentID(ctx context.Context, studentID string) (*model.StudentPerformance, error)
	// Exists 只判断学生是否存在，不读取整行。
	Exists(ctx context.Context, studentID string) (bool, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository 创建一个新的 StudentRepository 实例。
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) FindByStudentID(ctx context.Context, studentID string) (*model.StudentPerformance, error) {
	var s model.StudentPerformance
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Take(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepository) Exists(ctx context.Context, studentID string) (bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.StudentPerformance{}).
		Where("student_id = ?", studentID).
		Limit(1).
		Pluck("student_id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}
