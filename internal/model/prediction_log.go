package model

import "time"

// Subjects 是零样本分类器的固定候选标签，顺序即平局时的优先顺序。
var Subjects = []string{
	"Mathematics", "Physics", "Chemistry", "Biology",
	"History", "Geography", "Literature", "Computer-Science",
}

// PredictionLog 对应 log_table 表，每次分类成功后追加一行，应用从不读取或修改。
type PredictionLog struct {
	StudentID      string    `gorm:"column:student_id;type:varchar(64)" json:"studentId"`
	InputSample    string    `gorm:"column:input_sample;type:text" json:"inputSample"`
	Subject        string    `gorm:"column:subject;type:varchar(32)" json:"subject"`
	PredictionTime time.Time `gorm:"column:prediction_time" json:"predictionTime"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (PredictionLog) TableName() string {
	return "log_table"
}
