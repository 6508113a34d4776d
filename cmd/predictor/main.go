// Package main 是学科预测服务的入口点。
package main

import (
	"context"

	"edu-insight-go/internal/bootstrap"
	"edu-insight-go/internal/config"
	"edu-insight-go/internal/handler"
	"edu-insight-go/internal/repository"
	"edu-insight-go/internal/service"
	"edu-insight-go/pkg/database"
	"edu-insight-go/pkg/kafka"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/zeroshot"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 配置、日志与必需变量检查
	cfg := bootstrap.Init(config.ComponentPredictor)
	defer log.Sync()

	// 2. 数据库。启动时不探测连通性，写库失败按请求返回 500
	database.InitMySQL(cfg.Database.MySQL, false)

	// 3. Repository 与 Service
	logRepo := repository.NewPredictionLogRepository(database.DB)
	classifier := zeroshot.NewClient(cfg.Classifier)
	classificationService := service.NewClassificationService(classifier, logRepo)

	// 4. 可选的 Kafka 消费者，与 HTTP 接口走同一条处理流程
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if cfg.Kafka.Brokers != "" {
		go kafka.StartConsumer(consumerCtx, cfg.Kafka, classificationService)
	}

	// 5. 路由
	r := bootstrap.NewEngine(cfg.Server.Mode)
	registerRoutes(r, handler.NewPredictHandler(classificationService))

	bootstrap.Serve(config.ComponentPredictor, cfg.Server.PredictorPort, r, stopConsumer)
}

func registerRoutes(r *gin.Engine, h *handler.PredictHandler) {
	r.GET("/", h.Root)
	r.POST("/predict", h.Predict)
}
