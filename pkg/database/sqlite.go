package database

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitSQLite 打开 SQLite 数据库, 主要用于本地开发和测试
func InitSQLite(dsn string) (*gorm.DB, error) {
	connection, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	// 内存库只能使用单连接, 否则每个连接都是独立的库
	if sqlDB, err := connection.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(connection); err != nil {
		return nil, err
	}
	return connection, nil
}
