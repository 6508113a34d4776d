package database

import (
	"context"

	"edu-insight-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// RDB 是全局的 Redis 客户端，未配置地址时为 nil。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接，连接失败时退出进程。
func InitRedis(addr, password string, db int) {
	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := RDB.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Infof("Redis client connected, addr=%s", addr)
}
