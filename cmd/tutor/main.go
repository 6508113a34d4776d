// Package main 是 AI tutor 聊天服务的入口点。
package main

import (
	"net/http"
	"strings"
	"time"

	"edu-insight-go/internal/bootstrap"
	"edu-insight-go/internal/config"
	"edu-insight-go/internal/handler"
	"edu-insight-go/internal/middleware"
	"edu-insight-go/internal/repository"
	"edu-insight-go/internal/service"
	"edu-insight-go/internal/web"
	"edu-insight-go/pkg/database"
	"edu-insight-go/pkg/kafka"
	"edu-insight-go/pkg/llm"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/notify"
	"edu-insight-go/pkg/token"

	"github.com/gin-gonic/gin"
)

const pageTitle = "🧠 AI Tutor Chat"

func main() {
	// 1. 配置、日志与必需变量检查
	cfg := bootstrap.Init(config.ComponentTutor)
	defer log.Sync()

	// 2. 数据库与会话存储
	database.InitMySQL(cfg.Database.MySQL, true)
	ttl := time.Duration(cfg.Tutor.SessionTTLHours) * time.Hour
	var sessions repository.ChatSessionRepository
	if cfg.Database.Redis.Addr != "" {
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		sessions = repository.NewRedisChatSessionRepository(database.RDB, ttl)
	} else {
		log.Warnf("未配置 REDIS_ADDR，使用进程内会话存储")
		sessions = repository.NewMemoryChatSessionRepository()
	}

	// 3. 主题通知通道
	var onShutdown []func()
	if strings.EqualFold(cfg.Topic.Transport, "kafka") {
		kafka.InitProducer(cfg.Kafka)
		onShutdown = append(onShutdown, func() {
			if err := kafka.CloseProducer(); err != nil {
				log.Errorf("关闭 Kafka 生产者失败: %v", err)
			}
		})
	}
	notifier := notify.New(cfg.Topic, kafka.ProduceTopicTask)

	// 4. Service
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	tutorService := service.NewTutorService(
		repository.NewStudentRepository(database.DB),
		sessions,
		llm.NewClient(cfg.LLM),
		notifier,
		jwtManager,
		cfg.LLM,
		cfg.Tutor,
	)

	// 5. 路由
	tmpl, err := web.Templates()
	if err != nil {
		log.Fatal("解析页面模板失败", err)
	}
	r := bootstrap.NewEngine(cfg.Server.Mode)
	r.SetHTMLTemplate(tmpl)
	registerRoutes(r, tutorService, jwtManager)

	bootstrap.Serve(config.ComponentTutor, cfg.Server.TutorPort, r, onShutdown...)
}

func registerRoutes(r *gin.Engine, tutorService service.TutorService, jwtManager *token.JWTManager) {
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "tutor.html", gin.H{"Title": pageTitle})
	})

	tutorHandler := handler.NewTutorHandler(tutorService)
	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/login", tutorHandler.Login)
		apiV1.POST("/logout", middleware.AuthMiddleware(jwtManager, tutorService), tutorHandler.Logout)

		chats := apiV1.Group("/chats")
		chats.Use(middleware.AuthMiddleware(jwtManager, tutorService))
		{
			chats.GET("", tutorHandler.ListChats)
			chats.POST("", tutorHandler.CreateChat)
			chats.DELETE("/:chatId", tutorHandler.DeleteChat)
			chats.PUT("/:chatId/active", tutorHandler.SelectChat)
			chats.GET("/:chatId/messages", tutorHandler.GetMessages)
		}
	}

	// Chat 路由 (WebSocket)
	r.GET("/chat/:token", handler.NewChatHandler(tutorService, jwtManager).Handle)
}
