package model

// FeatureNames 是三个模型共用的特征顺序，必须与预训练时一致。
var FeatureNames = []string{
	"grade_level", "attendance_rate", "avg_daily_study_time",
	"homework_completion_rate", "past_score", "motivation_level", "use_ed_tech",
	"quiz_accuracy",
}

// FeatureVector 是编码后的模型输入。
type FeatureVector struct {
	GradeLevel             float64 `json:"grade_level"`
	AttendanceRate         float64 `json:"attendance_rate"`
	AvgDailyStudyTime      float64 `json:"avg_daily_study_time"`
	HomeworkCompletionRate float64 `json:"homework_completion_rate"`
	PastScore              float64 `json:"past_score"`
	MotivationLevel        float64 `json:"motivation_level"`
	UseEdTech              float64 `json:"use_ed_tech"`
	QuizAccuracy           float64 `json:"quiz_accuracy"`
}

// Values 按 FeatureNames 的顺序返回特征值。
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.GradeLevel, f.AttendanceRate, f.AvgDailyStudyTime,
		f.HomeworkCompletionRate, f.PastScore, f.MotivationLevel, f.UseEdTech,
		f.QuizAccuracy,
	}
}

// PerformancePrediction 是三个模型的合并输出。
// Available 为 false 时表示模型调用失败，页面显示 N/A。
type PerformancePrediction struct {
	Available   bool    `json:"available"`
	Score       float64 `json:"predictedScore"`
	Pass        bool    `json:"pass"`
	DropoutRisk bool    `json:"dropoutRisk"`
	// Overridden 表示分类器原本判定不及格，但因分数 >= 60 被改为及格。
	Overridden bool   `json:"overridden"`
	Error      string `json:"error,omitempty"`

	PassProbability    float64 `json:"passProbability"`
	DropoutProbability float64 `json:"dropoutProbability"`
}

// PassLabel 返回 PASS / FAIL / N/A。
func (p PerformancePrediction) PassLabel() string {
	if !p.Available {
		return "N/A"
	}
	if p.Pass {
		return "PASS"
	}
	return "FAIL"
}
