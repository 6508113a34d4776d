package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"edu-insight-go/internal/model"
	"edu-insight-go/internal/repository"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/metrics"
	"edu-insight-go/pkg/scoring"

	"gorm.io/gorm"
)

// PassingScore 以上的预测分数强制判定为及格。
const PassingScore = 60.0

// 编码时的回退值
const (
	defaultGradeLevel      = 0
	defaultMotivationLevel = 2
)

// ScorePredictor 是预训练流水线的抽象，*scoring.Pipeline 实现了该接口。
type ScorePredictor interface {
	Predict(features []float64) (scoring.Raw, error)
}

// PerformanceService 为 dashboard 提供学生成绩预测。
type PerformanceService interface {
	// Lookup 查找学生并运行模型。学生不存在时返回 ErrStudentNotFound，且不调用模型。
	Lookup(ctx context.Context, studentID string) (*StudentReport, error)
	Manual(ctx context.Context, features model.FeatureVector) (*model.PerformancePrediction, error)
	// Predict 运行模型并应用分数与及格判定的一致性规则。模型出错时返回 Available=false。
	Predict(features model.FeatureVector) model.PerformancePrediction
}

// ProgressItem 是页面上的一条进度条，Percent 已截断到 0–100。
type ProgressItem struct {
	Label   string `json:"label"`
	Percent int    `json:"percent"`
	Color   string `json:"color"`
}

// TimeShare 是学习时间分配中的一项。
type TimeShare struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
}

// StudentReport 是查询模式下页面展示所需的全部数据。
type StudentReport struct {
	Student       *model.StudentPerformance   `json:"student"`
	Features      model.FeatureVector         `json:"features"`
	Prediction    model.PerformancePrediction `json:"prediction"`
	Progress      []ProgressItem              `json:"progress"`
	TimeShares    []TimeShare                 `json:"timeShares"`
	AvgStudyHours float64                     `json:"avgStudyHours"`
	UsesEdTech    bool                        `json:"usesEdTech"`
	LearningStyle string                      `json:"learningStyle"`
	Grade         string                      `json:"grade"`
	PastScore     *float64                    `json:"pastScore"`
}

type performanceService struct {
	students repository.StudentRepository
	pipeline ScorePredictor
}

// NewPerformanceService 创建一个新的 PerformanceService 实例。
func NewPerformanceService(students repository.StudentRepository, pipeline ScorePredictor) PerformanceService {
	return &performanceService{students: students, pipeline: pipeline}
}

func (s *performanceService) Lookup(ctx context.Context, studentID string) (*StudentReport, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, ErrStudentNotFound
	}
	student, err := s.students.FindByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.PerformancePredictions.WithLabelValues("lookup", "not_found").Inc()
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to query student: %w", err)
	}

	features, err := EncodeStudent(student)
	if err != nil {
		log.Warnw("学生特征不完整，跳过预测", "studentId", studentID, "error", err)
		metrics.PerformancePredictions.WithLabelValues("lookup", "incomplete").Inc()
		prediction := model.PerformancePrediction{Available: false, Error: err.Error()}
		return buildReport(student, features, prediction), nil
	}
	prediction := s.Predict(features)
	metrics.PerformancePredictions.WithLabelValues("lookup", outcome(prediction)).Inc()
	return buildReport(student, features, prediction), nil
}

func (s *performanceService) Manual(ctx context.Context, features model.FeatureVector) (*model.PerformancePrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prediction := s.Predict(features)
	metrics.PerformancePredictions.WithLabelValues("manual", outcome(prediction)).Inc()
	return &prediction, nil
}

func (s *performanceService) Predict(features model.FeatureVector) model.PerformancePrediction {
	raw, err := s.pipeline.Predict(features.Values())
	if err != nil {
		log.Errorw("成绩预测失败", "error", err)
		return model.PerformancePrediction{Available: false, Error: err.Error()}
	}

	p := model.PerformancePrediction{
		Available:          true,
		Score:              raw.Score,
		Pass:               raw.Pass,
		DropoutRisk:        raw.DropoutRisk,
		PassProbability:    raw.PassProbability,
		DropoutProbability: raw.DropoutProbability,
	}
	if p.Score >= PassingScore && !p.Pass {
		p.Pass = true
		p.Overridden = true
		log.Warnw("分数与及格判定矛盾，改为及格", "score", p.Score)
	}
	return p
}

func outcome(p model.PerformancePrediction) string {
	switch {
	case !p.Available:
		return "error"
	case p.Pass:
		return "pass"
	default:
		return "fail"
	}
}

// parseLevel 把 "3"、"3.7"、" 2 " 之类的值截断为整数，无法解析时返回 fallback。
func parseLevel(raw string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return math.Trunc(v)
}

func parseLevelPtr(raw *string, fallback float64) float64 {
	if raw == nil {
		return fallback
	}
	return parseLevel(*raw, fallback)
}

// IsTruthy 判断 use_ed_tech 的取值，只接受 true / yes / 1（忽略大小写与首尾空白）。
func IsTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// EncodeStudent 把数据库中的一行编码为模型输入。
// 任一数值特征为 NULL 时返回 ErrIncompleteFeatures，错误信息中列出缺失的列。
func EncodeStudent(st *model.StudentPerformance) (model.FeatureVector, error) {
	var missing []string
	need := func(column string, v *float64) float64 {
		if v == nil {
			missing = append(missing, column)
			return 0
		}
		return *v
	}
	fv := model.FeatureVector{
		GradeLevel:             parseLevelPtr(st.GradeLevel, defaultGradeLevel),
		AttendanceRate:         need("attendance_rate", st.AttendanceRate),
		AvgDailyStudyTime:      need("avg_daily_study_time", st.AvgDailyStudyTime),
		HomeworkCompletionRate: need("homework_completion_rate", st.HomeworkCompletionRate),
		PastScore:              need("past_score", st.PastScore),
		MotivationLevel:        parseLevelPtr(st.MotivationLevel, defaultMotivationLevel),
		UseEdTech:              boolFeature(st.UseEdTech != nil && IsTruthy(*st.UseEdTech)),
		QuizAccuracy:           need("quiz_accuracy", st.QuizAccuracy),
	}
	if len(missing) > 0 {
		return fv, fmt.Errorf("%w: %s", ErrIncompleteFeatures, strings.Join(missing, ", "))
	}
	return fv, nil
}

func valueOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// EncodeManual 把表单输入编码为模型输入，缺失或无法解析的数值按 0 处理。
func EncodeManual(values map[string]string) model.FeatureVector {
	num := func(key string) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(values[key]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	return model.FeatureVector{
		GradeLevel:             parseLevel(values["grade_level"], defaultGradeLevel),
		AttendanceRate:         num("attendance_rate"),
		AvgDailyStudyTime:      num("avg_daily_study_time"),
		HomeworkCompletionRate: num("homework_completion_rate"),
		PastScore:              num("past_score"),
		MotivationLevel:        parseLevel(values["motivation_level"], defaultMotivationLevel),
		UseEdTech:              boolFeature(IsTruthy(values["use_ed_tech"])),
		QuizAccuracy:           num("quiz_accuracy"),
	}
}

func clampPercent(p float64) int {
	if math.IsNaN(p) {
		return 0
	}
	return max(0, min(int(p), 100))
}

func buildReport(st *model.StudentPerformance, features model.FeatureVector, prediction model.PerformancePrediction) *StudentReport {
	motivation := parseLevelPtr(st.MotivationLevel, 0)
	total := st.HomeworkTime + st.QuizTime + st.VideoTime
	share := func(v float64) float64 {
		if total <= 0 {
			return 0
		}
		return v / total * 100
	}

	grade := "N/A"
	if st.GradeLevel != nil && strings.TrimSpace(*st.GradeLevel) != "" {
		grade = *st.GradeLevel
	}

	return &StudentReport{
		Student:    st,
		Features:   features,
		Prediction: prediction,
		Progress: []ProgressItem{
			{Label: "Motivation Level", Percent: clampPercent(motivation / 3 * 100), Color: "#00E5FF"},
			{Label: "Quiz Accuracy", Percent: clampPercent(valueOf(st.QuizAccuracy)), Color: "#8E2DE2"},
			{Label: "Video Completion", Percent: clampPercent(share(st.VideoTime)), Color: "#FF00FF"},
			{Label: "Homework Completion", Percent: clampPercent(valueOf(st.HomeworkCompletionRate)), Color: "#00E5FF"},
		},
		TimeShares: []TimeShare{
			{Label: "Homework", Value: st.HomeworkTime, Percent: share(st.HomeworkTime), Color: "#8E2DE2"},
			{Label: "Quiz", Value: st.QuizTime, Percent: share(st.QuizTime), Color: "#00E5FF"},
			{Label: "Video", Value: st.VideoTime, Percent: share(st.VideoTime), Color: "#FF00FF"},
		},
		AvgStudyHours: math.Round(valueOf(st.AvgDailyStudyTime)*10) / 10,
		UsesEdTech:    features.UseEdTech == 1,
		LearningStyle: st.PreferredLearningStyle,
		Grade:         grade,
		PastScore:     st.PastScore,
	}
}
