package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/logger"
	"github.com/wfunc/darts-engine/internal/models"
)

// 组合索引，单列索引由模型标签创建
var compositeIndexes = []struct {
	name  string
	table string
	cols  string
}{
	{"idx_game_records_owner_status", "game_records", "owner_id, status"},
	{"idx_game_records_status_activity", "game_records", "status, activity_at"},
	{"idx_board_logs_game_created", "board_logs", "game_id, created_at"},
}

// AutoMigrate 迁移全局数据库
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate 自动迁移表结构
func Migrate(db *gorm.DB) error {
	if db == nil {
		return apperrors.New(apperrors.ErrDatabaseConnect, "数据库未初始化")
	}

	// 多个进程共用一个 SQLite 文件时串行迁移
	if dbPath := sqlitePath(db); dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "获取迁移锁失败")
		}
		defer releaseMigrationLock(lockFile)
	}

	logger.Info("开始数据库迁移...")

	for _, model := range models.AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return apperrors.Wrapf(err, apperrors.ErrDatabaseConnect, "迁移 %T", model)
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	createIndexes(db)

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建组合索引，失败只记录警告
func createIndexes(db *gorm.DB) {
	for _, idx := range compositeIndexes {
		sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.name, idx.table, idx.cols)
		if db.Dialector.Name() == "mysql" {
			// MySQL 不支持 IF NOT EXISTS
			if db.Migrator().HasIndex(idx.table, idx.name) {
				continue
			}
			sql = fmt.Sprintf("CREATE INDEX %s ON %s(%s)", idx.name, idx.table, idx.cols)
		}
		if err := db.Exec(sql).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx.name), zap.Error(err))
		}
	}
}
