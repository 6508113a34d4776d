// Package model 包含了应用的数据模型定义。
package model

// StudentPerformance 对应外部维护的 student_performance 表，应用只读。
// grade_level / motivation_level / use_ed_tech 在源数据中类型不统一，按字符串读取后再编码。
// 数值特征列可能为 NULL，此时该学生无法预测。
type StudentPerformance struct {
	StudentID              string   `gorm:"column:student_id;type:varchar(64);primaryKey" json:"studentId"`
	Name                   string   `gorm:"column:name;type:varchar(128)" json:"name"`
	Age                    int      `gorm:"column:age" json:"age"`
	Gender                 string   `gorm:"column:gender;type:varchar(16)" json:"gender"`
	GradeLevel             *string  `gorm:"column:grade_level;type:varchar(16)" json:"gradeLevel"`
	AttendanceRate         *float64 `gorm:"column:attendance_rate" json:"attendanceRate"`
	AvgDailyStudyTime      *float64 `gorm:"column:avg_daily_study_time" json:"avgDailyStudyTime"`
	HomeworkCompletionRate *float64 `gorm:"column:homework_completion_rate" json:"homeworkCompletionRate"`
	QuizAccuracy           *float64 `gorm:"column:quiz_accuracy" json:"quizAccuracy"`
	MotivationLevel        *string  `gorm:"column:motivation_level;type:varchar(16)" json:"motivationLevel"`
	UseEdTech              *string  `gorm:"column:use_ed_tech;type:varchar(16)" json:"useEdTech"`
	PreferredLearningStyle string   `gorm:"column:preferred_learning_style;type:varchar(32)" json:"preferredLearningStyle"`
	PastScore              *float64 `gorm:"column:past_score" json:"pastScore"`
	HomeworkTime           float64  `gorm:"column:homework_time" json:"homeworkTime"`
	QuizTime               float64  `gorm:"column:quiz_time" json:"quizTime"`
	VideoTime              float64  `gorm:"column:video_time" json:"videoTime"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (StudentPerformance) TableName() string {
	return "student_performance"
}
