// Package bootstrap 收拢三个进程共用的启动步骤：配置、日志、必需变量检查、gin 引擎与优雅停机。
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"edu-insight-go/internal/config"
	"edu-insight-go/internal/middleware"
	"edu-insight-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultConfigPath 可以通过 CONFIG_PATH 覆盖。
const DefaultConfigPath = "./configs/config.yaml"

// shutdownTimeout 是优雅停机的最长等待时间。
const shutdownTimeout = 5 * time.Second

// Init 加载配置并初始化日志。缺少 component 所需的环境变量时直接退出。
func Init(component string) config.Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultConfigPath
	}
	config.Init(path)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	log.Infof("[%s] 日志记录器初始化成功", component)

	if missing := cfg.Missing(component); len(missing) > 0 {
		log.Fatalf("[%s] 缺少必需的环境变量: %s", component, strings.Join(missing, ", "))
	}
	return cfg
}

// NewEngine 创建不带默认中间件的 gin 引擎，挂上请求日志、Recovery 与 /metrics。
func NewEngine(mode string) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Serve 启动 HTTP 服务并阻塞到收到 SIGINT/SIGTERM，然后在超时内优雅关闭。
// onShutdown 在 HTTP 服务关闭后依次执行。
func Serve(name, port string, handler http.Handler, onShutdown ...func()) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: handler,
	}

	go func() {
		log.Infof("[%s] 服务启动于 %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	for _, fn := range onShutdown {
		fn()
	}
	log.Infof("[%s] 服务已优雅关闭", name)
}
