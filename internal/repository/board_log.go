package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/darts-engine/internal/models"
	"gorm.io/gorm"
)

// BoardLogRepository 镖盘输入日志仓储
type BoardLogRepository struct {
	db *gorm.DB
}

// NewBoardLogRepository 创建镖盘日志仓储
func NewBoardLogRepository(db *gorm.DB) *BoardLogRepository {
	return &BoardLogRepository{
		db: db,
	}
}

// Create 创建日志记录
func (r *BoardLogRepository) Create(ctx context.Context, log *models.BoardLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// CreateBatch 批量创建日志记录
func (r *BoardLogRepository) CreateBatch(ctx context.Context, logs []*models.BoardLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// Query 查询日志
func (r *BoardLogRepository) Query(ctx context.Context, query *models.BoardLogQuery) ([]*models.BoardLog, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.BoardLog{})

	if query.GameID != "" {
		db = db.Where("game_id = ?", query.GameID)
	}
	if query.Level != "" {
		db = db.Where("level = ?", query.Level)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", *query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", *query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("id ASC")
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}
	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}

	var logs []*models.BoardLog
	if err := db.Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// CleanupLogs 清理日志（保留最近N天的数据）
func (r *BoardLogRepository) CleanupLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("保留天数必须大于0")
	}
	before := time.Now().AddDate(0, 0, -retentionDays)
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.BoardLog{})
	return result.RowsAffected, result.Error
}
