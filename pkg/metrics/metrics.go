// Package metrics 定义了三个进程共用的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	predictionsMetricName            = "edu_predictions_total"
	predictionFailuresMetricName     = "edu_prediction_failures_total"
	classifyDurationMetricName       = "edu_classify_duration_seconds"
	topicNotificationsMetricName     = "edu_topic_notifications_total"
	performancePredictionsMetricName = "edu_performance_predictions_total"
)

// 失败阶段
const (
	StageClassify = "classify"
	StageLogWrite = "log_write"
)

var (
	// Predictions 按学科统计成功写入的预测。
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: predictionsMetricName,
		Help: "Subject predictions written to the prediction log, by subject.",
	}, []string{"subject"})

	// PredictionFailures 按失败阶段统计丢失的预测。
	PredictionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: predictionFailuresMetricName,
		Help: "Subject predictions that failed, by stage.",
	}, []string{"stage"})

	ClassifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    classifyDurationMetricName,
		Help:    "Latency of zero-shot classification calls.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// TopicNotifications 统计 tutor 发出的主题通知，result 为 ok 或 error。
	TopicNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: topicNotificationsMetricName,
		Help: "Fire-and-forget topic notifications sent by the tutor, by result.",
	}, []string{"result"})

	// PerformancePredictions 统计 dashboard 的预测次数，mode 为 lookup 或 manual。
	PerformancePredictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: performancePredictionsMetricName,
		Help: "Performance predictions served by the dashboard, by mode and outcome.",
	}, []string{"mode", "outcome"})
)
