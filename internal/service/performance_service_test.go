package service

import (
	"context"
	"errors"
	"testing"

	"edu-insight-go/internal/model"
	"edu-insight-go/internal/repository"
	"edu-insight-go/pkg/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	raw   scoring.Raw
	err   error
	calls int
	last  []float64
}

func (f *fakePipeline) Predict(features []float64) (scoring.Raw, error) {
	f.calls++
	f.last = features
	return f.raw, f.err
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestLookupUnknownStudentSkipsModel(t *testing.T) {
	db := newTestDB(t)
	pipeline := &fakePipeline{}
	svc := NewPerformanceService(repository.NewStudentRepository(db), pipeline)

	_, err := svc.Lookup(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.Zero(t, pipeline.calls)
}

func TestLookupBuildsReport(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.StudentPerformance{
		StudentID:              "S001",
		Name:                   "Ada",
		GradeLevel:             strPtr("10"),
		AttendanceRate:         floatPtr(92),
		AvgDailyStudyTime:      floatPtr(2.46),
		HomeworkCompletionRate: floatPtr(130),
		QuizAccuracy:           floatPtr(81.9),
		PastScore:              floatPtr(58),
		MotivationLevel:        strPtr("3"),
		UseEdTech:              strPtr(" Yes "),
		PreferredLearningStyle: "Visual",
		HomeworkTime:           2,
		QuizTime:               1,
		VideoTime:              1,
	}).Error)

	pipeline := &fakePipeline{raw: scoring.Raw{Score: 71.5, Pass: true}}
	svc := NewPerformanceService(repository.NewStudentRepository(db), pipeline)

	report, err := svc.Lookup(context.Background(), "S001")
	require.NoError(t, err)
	require.Equal(t, 1, pipeline.calls)
	assert.Equal(t, []float64{10, 92, 2.46, 130, 58, 3, 1, 81.9}, pipeline.last)

	assert.Equal(t, "PASS", report.Prediction.PassLabel())
	assert.True(t, report.UsesEdTech)
	assert.Equal(t, "10", report.Grade)
	assert.Equal(t, 2.5, report.AvgStudyHours)
	require.NotNil(t, report.PastScore)
	assert.Equal(t, 58.0, *report.PastScore)

	percents := map[string]int{}
	for _, p := range report.Progress {
		percents[p.Label] = p.Percent
	}
	assert.Equal(t, 100, percents["Motivation Level"])
	assert.Equal(t, 81, percents["Quiz Accuracy"])
	assert.Equal(t, 25, percents["Video Completion"])
	assert.Equal(t, 100, percents["Homework Completion"])
	assert.InDelta(t, 50.0, report.TimeShares[0].Percent, 1e-9)
}

func TestPredictOverridesFailWhenScoreHigh(t *testing.T) {
	svc := NewPerformanceService(nil, &fakePipeline{raw: scoring.Raw{Score: 60, Pass: false}})
	p := svc.Predict(model.FeatureVector{})
	assert.True(t, p.Pass)
	assert.True(t, p.Overridden)

	svc = NewPerformanceService(nil, &fakePipeline{raw: scoring.Raw{Score: 59.99, Pass: false, DropoutRisk: true}})
	p = svc.Predict(model.FeatureVector{})
	assert.False(t, p.Pass)
	assert.False(t, p.Overridden)
	assert.True(t, p.DropoutRisk)
	assert.Equal(t, "FAIL", p.PassLabel())
}

func TestPredictModelErrorIsNotAvailable(t *testing.T) {
	svc := NewPerformanceService(nil, &fakePipeline{err: errors.New("bad shape")})
	p, err := svc.Manual(context.Background(), model.FeatureVector{})
	require.NoError(t, err)
	assert.False(t, p.Available)
	assert.Equal(t, "N/A", p.PassLabel())
}

func completeStudent() *model.StudentPerformance {
	return &model.StudentPerformance{
		AttendanceRate:         floatPtr(90),
		AvgDailyStudyTime:      floatPtr(2),
		HomeworkCompletionRate: floatPtr(80),
		QuizAccuracy:           floatPtr(75),
		PastScore:              floatPtr(77),
	}
}

func TestEncodeStudentFallbacks(t *testing.T) {
	st := completeStudent()
	st.GradeLevel = strPtr("tenth")
	st.MotivationLevel = strPtr("high")
	st.UseEdTech = strPtr("maybe")
	fv, err := EncodeStudent(st)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fv.GradeLevel)
	assert.Equal(t, 2.0, fv.MotivationLevel)
	assert.Equal(t, 0.0, fv.UseEdTech)
	assert.Equal(t, 77.0, fv.PastScore)

	fv, err = EncodeStudent(completeStudent())
	require.NoError(t, err)
	assert.Equal(t, 0.0, fv.GradeLevel)
	assert.Equal(t, 2.0, fv.MotivationLevel)

	st = completeStudent()
	st.GradeLevel = strPtr("9.8")
	st.MotivationLevel = strPtr("1.2")
	fv, err = EncodeStudent(st)
	require.NoError(t, err)
	assert.Equal(t, 9.0, fv.GradeLevel)
	assert.Equal(t, 1.0, fv.MotivationLevel)
}

func TestEncodeStudentNullFeatures(t *testing.T) {
	st := completeStudent()
	st.PastScore = nil
	st.QuizAccuracy = nil
	_, err := EncodeStudent(st)
	require.ErrorIs(t, err, ErrIncompleteFeatures)
	assert.Contains(t, err.Error(), "past_score")
	assert.Contains(t, err.Error(), "quiz_accuracy")
}

func TestLookupNullFeatureIsNotAvailable(t *testing.T) {
	db := newTestDB(t)
	st := completeStudent()
	st.StudentID = "S002"
	st.PastScore = nil
	require.NoError(t, db.Create(st).Error)

	pipeline := &fakePipeline{raw: scoring.Raw{Score: 80, Pass: true}}
	svc := NewPerformanceService(repository.NewStudentRepository(db), pipeline)

	report, err := svc.Lookup(context.Background(), "S002")
	require.NoError(t, err)
	assert.Zero(t, pipeline.calls)
	assert.False(t, report.Prediction.Available)
	assert.Equal(t, "N/A", report.Prediction.PassLabel())
	assert.Contains(t, report.Prediction.Error, "past_score")
	assert.Nil(t, report.PastScore)
}

func TestEncodeManual(t *testing.T) {
	fv := EncodeManual(map[string]string{
		"grade_level":     "x",
		"attendance_rate": "88.5",
		"use_ed_tech":     "TRUE",
		"quiz_accuracy":   "",
	})
	assert.Equal(t, model.FeatureVector{AttendanceRate: 88.5, MotivationLevel: 2, UseEdTech: 1}, fv)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"true", "Yes", " 1 ", "TRUE"} {
		assert.True(t, IsTruthy(v), v)
	}
	for _, v := range []string{"", "no", "0", "y", "1.0"} {
		assert.False(t, IsTruthy(v), v)
	}
}
