// Package database 负责初始化 MySQL/TiDB 与 Redis 连接。
package database

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"edu-insight-go/internal/config"
	"edu-insight-go/pkg/log"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DB 是全局的 gorm 连接。
var DB *gorm.DB

// customTLSName 是通过 CA 文件注册到驱动中的 TLS 配置名。
const customTLSName = "custom"

// BuildDSN 根据配置生成 DSN。显式 DSN 优先。
// 提供 CA 路径时注册自定义 TLS 配置；仅开启 TLS 时使用系统根证书（TiDB Cloud 的常见配置）。
func BuildDSN(cfg config.MySQLConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	dc := mysqldriver.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = cfg.Address()
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.Loc = time.Local
	dc.Params = map[string]string{"charset": "utf8mb4"}

	switch {
	case cfg.SSLCAPath != "":
		if err := registerCA(cfg.SSLCAPath, cfg.Host); err != nil {
			return "", err
		}
		dc.TLSConfig = customTLSName
	case cfg.TLS:
		dc.TLSConfig = "true"
	}
	return dc.FormatDSN(), nil
}

func registerCA(caPath, serverName string) error {
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return fmt.Errorf("读取 CA 文件失败: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("CA 文件 %s 中没有可用的 PEM 证书", caPath)
	}
	return mysqldriver.RegisterTLSConfig(customTLSName, &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	})
}

// OpenMySQL 打开 gorm 连接并配置连接池。
// ping 为 false 时不在启动时探测连通性，数据库故障留到每次请求时暴露。
func OpenMySQL(cfg config.MySQLConfig, ping bool) (*gorm.DB, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		DisableAutomaticPing: !ping,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// InitMySQL 初始化全局连接，失败时直接退出进程。
func InitMySQL(cfg config.MySQLConfig, ping bool) {
	var err error
	DB, err = OpenMySQL(cfg, ping)
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	log.Infof("MySQL database ready, addr=%s db=%s", cfg.Address(), cfg.Name)
}
