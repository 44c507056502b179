package database

import (
	"fmt"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// Init 按配置初始化数据库连接并自动迁移表结构
func Init(cfg configs.DBConfig) error {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return fmt.Errorf("不支持的数据库类型: %s", cfg.Dialect)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %v", err)
	}

	if err := conn.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.ToolCall{},
		&models.FactDocument{},
	); err != nil {
		return fmt.Errorf("自动迁移失败: %v", err)
	}

	db = conn
	return nil
}

// GetDB 获取全局数据库连接
func GetDB() *gorm.DB {
	return db
}

// SetDB 注入数据库连接（测试用）
func SetDB(conn *gorm.DB) {
	db = conn
}

// Close 关闭数据库连接
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
