package service

import (
	"context"
	"errors"
	"testing"

	"edu-insight-go/internal/model"
	"edu-insight-go/internal/repository"
	"edu-insight-go/pkg/tasks"
	"edu-insight-go/pkg/zeroshot"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClassifier struct {
	result zeroshot.Result
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, labels []string) (zeroshot.Result, error) {
	f.calls++
	return f.result, f.err
}

type failingLogRepo struct {
	calls int
}

func (r *failingLogRepo) Create(ctx context.Context, entry *model.PredictionLog) error {
	r.calls++
	return errors.New("connection refused")
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库每个连接各自独立，限制为单连接
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.PredictionLog{}, &model.StudentPerformance{}))
	return db
}

func TestPredictWritesOneLogRow(t *testing.T) {
	db := newTestDB(t)
	classifier := &fakeClassifier{result: zeroshot.Result{"Biology": 0.9, "Chemistry": 0.1}}
	svc := NewClassificationService(classifier, repository.NewPredictionLogRepository(db))

	subject, err := svc.Predict(context.Background(), "S001", "How does photosynthesis work?")
	require.NoError(t, err)
	assert.Equal(t, "Biology", subject)

	var rows []model.PredictionLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "S001", rows[0].StudentID)
	assert.Equal(t, "How does photosynthesis work?", rows[0].InputSample)
	assert.Equal(t, "Biology", rows[0].Subject)
	assert.False(t, rows[0].PredictionTime.IsZero())
}

func TestPredictRejectsBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		db := newTestDB(t)
		classifier := &fakeClassifier{result: zeroshot.Result{"Biology": 1}}
		svc := NewClassificationService(classifier, repository.NewPredictionLogRepository(db))

		_, err := svc.Predict(context.Background(), "S001", text)
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Zero(t, classifier.calls)

		var count int64
		require.NoError(t, db.Model(&model.PredictionLog{}).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestPredictClassifierFailure(t *testing.T) {
	db := newTestDB(t)
	classifier := &fakeClassifier{err: errors.New("model loading")}
	svc := NewClassificationService(classifier, repository.NewPredictionLogRepository(db))

	_, err := svc.Predict(context.Background(), "S001", "integrals")
	assert.ErrorIs(t, err, ErrClassification)

	var count int64
	require.NoError(t, db.Model(&model.PredictionLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPredictLogWriteFailureIsNotRetried(t *testing.T) {
	repo := &failingLogRepo{}
	classifier := &fakeClassifier{result: zeroshot.Result{"History": 0.8}}
	svc := NewClassificationService(classifier, repo)

	subject, err := svc.Predict(context.Background(), "S001", "the French revolution")
	assert.ErrorIs(t, err, ErrLogWrite)
	assert.Empty(t, subject)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, classifier.calls)
}

func TestProcessUsesSameFlow(t *testing.T) {
	db := newTestDB(t)
	classifier := &fakeClassifier{result: zeroshot.Result{"Physics": 0.6, "Mathematics": 0.6}}
	svc := NewClassificationService(classifier, repository.NewPredictionLogRepository(db))

	require.NoError(t, svc.Process(context.Background(), tasks.TopicDetectionTask{StudentID: "S9", Text: "vectors"}))

	var row model.PredictionLog
	require.NoError(t, db.First(&row).Error)
	// 平局取标签顺序中靠前的
	assert.Equal(t, "Mathematics", row.Subject)
}
