package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/models"
	"gorm.io/gorm"
)

// GameRepository 比赛仓储接口
type GameRepository interface {
	BaseRepository
	// Create 保存新比赛，版本号从1开始
	Create(ctx context.Context, ownerID uint, g *game.Game) error
	// Load 加载比赛及其版本号
	Load(ctx context.Context, id string) (*game.Game, int, error)
	// Save 按版本号保存，版本已变化时返回 ErrConflict
	Save(ctx context.Context, g *game.Game, version int) (int, error)
	FindRecord(ctx context.Context, id string) (*models.GameRecord, error)
	ListByOwner(ctx context.Context, ownerID uint, status string, pagination *Pagination) ([]*models.GameRecord, error)
	// FindIdle 查找超过指定时间未变更的进行中或暂停的比赛
	FindIdle(ctx context.Context, before time.Time, limit int) ([]*models.GameRecord, error)
}

// gameRepo 比赛仓储实现
type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建比赛仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建比赛
func (r *gameRepo) Create(ctx context.Context, ownerID uint, g *game.Game) error {
	record := models.NewGameRecord(ownerID, g)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Newf(apperrors.ErrAlreadyExists, "比赛ID: %s", g.ID)
		}
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "创建比赛")
	}
	return nil
}

// Load 加载比赛
func (r *gameRepo) Load(ctx context.Context, id string) (*game.Game, int, error) {
	record, err := r.FindRecord(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if record.Snapshot == nil {
		return nil, 0, apperrors.Newf(apperrors.ErrDataIntegrity, "比赛 %s 缺少快照", id)
	}
	return record.Snapshot, record.Version, nil
}

// Save 乐观锁保存
func (r *gameRepo) Save(ctx context.Context, g *game.Game, version int) (int, error) {
	record := models.GameRecord{}
	record.SetGame(g)
	record.Version = version + 1

	result := r.db.WithContext(ctx).
		Model(&models.GameRecord{ID: g.ID}).
		Where("version = ?", version).
		Select("game_mode", "status", "version", "winner_ref", "snapshot", "started_at", "finished_at", "activity_at", "updated_at").
		Updates(&record)
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate, "保存比赛")
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.GameRecord{}).Where("id = ?", g.ID).Count(&count).Error; err != nil {
			return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}
		if count == 0 {
			return 0, apperrors.Newf(apperrors.ErrNotFound, "比赛不存在: %s", g.ID)
		}
		return 0, apperrors.Newf(apperrors.ErrConflict, "比赛 %s 版本 %d 已过期", g.ID, version)
	}
	return record.Version, nil
}

// FindRecord 根据ID查找比赛记录
func (r *gameRepo) FindRecord(ctx context.Context, id string) (*models.GameRecord, error) {
	var record models.GameRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "比赛不存在: %s", id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &record, nil
}

// ListByOwner 获取用户创建的比赛（分页）
func (r *gameRepo) ListByOwner(ctx context.Context, ownerID uint, status string, pagination *Pagination) ([]*models.GameRecord, error) {
	var records []*models.GameRecord
	query := r.db.WithContext(ctx).Model(&models.GameRecord{}).Where("owner_id = ?", ownerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := findPage(query, pagination, "created_at DESC", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindIdle 查找闲置比赛
func (r *gameRepo) FindIdle(ctx context.Context, before time.Time, limit int) ([]*models.GameRecord, error) {
	var records []*models.GameRecord
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(game.StatusActive), string(game.StatusPaused)}).
		Where("activity_at < ?", before).
		Order("activity_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return records, nil
}
