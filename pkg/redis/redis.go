// Package redis 建立账号限流共享计数使用的 Redis 连接
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured 未配置 Redis 地址
var ErrNotConfigured = errors.New("未配置 Redis 地址")

const (
	defaultPoolSize    = 20
	defaultDialTimeout = 5 * time.Second
)

type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	// DialTimeout 同时作为启动时 Ping 的超时
	DialTimeout time.Duration
}

// Connect 创建客户端并 Ping 校验, 校验失败时关闭连接池
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.Host == "" {
		return nil, ErrNotConfigured
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultPoolSize
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		DialTimeout: opts.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}
	return client, nil
}
