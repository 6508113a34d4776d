// Package main 是学生成绩看板的入口点。
package main

import (
	"context"
	"strings"

	"edu-insight-go/internal/bootstrap"
	"edu-insight-go/internal/config"
	"edu-insight-go/internal/handler"
	"edu-insight-go/internal/repository"
	"edu-insight-go/internal/service"
	"edu-insight-go/internal/web"
	"edu-insight-go/pkg/database"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/scoring"
	"edu-insight-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 配置、日志与必需变量检查
	cfg := bootstrap.Init(config.ComponentDashboard)
	defer log.Sync()

	// 2. 加载模型文件，缺少任何一个都无法提供服务
	pipeline, err := scoring.Load(context.Background(), artifactSource(cfg))
	if err != nil {
		log.Fatal("加载模型文件失败", err)
	}
	log.Infof("模型加载完成，特征数: %d", pipeline.NumFeatures())

	// 3. 数据库
	database.InitMySQL(cfg.Database.MySQL, true)

	// 4. Service
	performanceService := service.NewPerformanceService(repository.NewStudentRepository(database.DB), pipeline)

	// 5. 路由
	tmpl, err := web.Templates()
	if err != nil {
		log.Fatal("解析页面模板失败", err)
	}
	r := bootstrap.NewEngine(cfg.Server.Mode)
	r.SetHTMLTemplate(tmpl)
	registerRoutes(r, handler.NewDashboardHandler(performanceService))

	bootstrap.Serve(config.ComponentDashboard, cfg.Server.DashboardPort, r)
}

func artifactSource(cfg config.Config) scoring.Source {
	if strings.EqualFold(cfg.Artifacts.Source, "minio") {
		storage.InitMinIO(cfg.MinIO)
		return storage.NewObjectSource(cfg.MinIO.BucketName, cfg.Artifacts.Prefix)
	}
	return scoring.LocalSource{Dir: cfg.Artifacts.Dir}
}

func registerRoutes(r *gin.Engine, h *handler.DashboardHandler) {
	r.GET("/", h.Index)
	r.GET("/students", h.Lookup)
	r.POST("/manual", h.Manual)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/students/:studentId/prediction", h.GetStudentPrediction)
		apiV1.POST("/predictions/manual", h.ManualPrediction)
	}
}
