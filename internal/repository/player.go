package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/game/scoring"
	"github.com/wfunc/darts-engine/internal/models"
	"gorm.io/gorm"
)

// PlayerRepository 选手仓储接口
type PlayerRepository interface {
	BaseRepository
	Create(ctx context.Context, player *models.Player) error
	FindByID(ctx context.Context, id uint) (*models.Player, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*models.Player, error)
	ListByOwner(ctx context.Context, ownerID uint, pagination *Pagination) ([]*models.Player, error)
	// ResolveOwned 按传入顺序解析调用者名下的选手，任一不存在或不属于调用者返回 ErrNotFound
	ResolveOwned(ctx context.Context, ownerID uint, ids []uint) ([]game.PlayerRef, error)
	// SaveStats 只更新统计列
	SaveStats(ctx context.Context, player *models.Player) error
	// Leaderboard 排行榜：绕圈按最少镖数，其余按三镖平均
	Leaderboard(ctx context.Context, mode scoring.GameMode, limit int) ([]*models.Player, error)
}

// playerRepo 选手仓储实现
type playerRepo struct {
	*BaseRepo
}

// NewPlayerRepository 创建选手仓储
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建选手
func (r *playerRepo) Create(ctx context.Context, player *models.Player) error {
	if err := r.db.WithContext(ctx).Create(player).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "创建选手")
	}
	return nil
}

// FindByID 根据ID查找选手
func (r *playerRepo) FindByID(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).First(&player, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "选手不存在: %d", id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &player, nil
}

// FindByIDs 批量查找
func (r *playerRepo) FindByIDs(ctx context.Context, ids []uint) ([]*models.Player, error) {
	var players []*models.Player
	if len(ids) == 0 {
		return players, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&players).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return players, nil
}

// ListByOwner 获取用户名下的选手
func (r *playerRepo) ListByOwner(ctx context.Context, ownerID uint, pagination *Pagination) ([]*models.Player, error) {
	var players []*models.Player
	query := r.db.WithContext(ctx).Model(&models.Player{}).Where("owner_id = ?", ownerID)

	if err := findPage(query, pagination, "id ASC", &players); err != nil {
		return nil, err
	}
	return players, nil
}

// ResolveOwned 解析调用者名下的选手
func (r *playerRepo) ResolveOwned(ctx context.Context, ownerID uint, ids []uint) ([]game.PlayerRef, error) {
	var players []*models.Player
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&players).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	byID := make(map[uint]*models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	refs := make([]game.PlayerRef, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "选手不存在: %d", id)
		}
		refs = append(refs, game.PlayerRef{ID: p.ID, Name: p.Name})
	}
	return refs, nil
}

// SaveStats 更新统计
func (r *playerRepo) SaveStats(ctx context.Context, player *models.Player) error {
	result := r.db.WithContext(ctx).
		Model(player).
		Select("games_played", "games_won", "total_score", "total_darts", "legs_played", "legs_won",
			"average_score", "average_darts_per_leg", "highest_score", "best_checkout", "total_180s",
			"best_clock_darts", "game_mode_stats", "achievements", "updated_at").
		Updates(player)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate, "更新选手统计")
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrNotFound, "选手不存在: %d", player.ID)
	}
	return nil
}

// Leaderboard 排行榜
func (r *playerRepo) Leaderboard(ctx context.Context, mode scoring.GameMode, limit int) ([]*models.Player, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := r.db.WithContext(ctx).Model(&models.Player{})
	if mode == scoring.ModeAroundTheClock {
		query = query.Where("best_clock_darts > 0").Order("best_clock_darts ASC")
	} else {
		query = query.Where("total_darts > 0").Order("average_score DESC")
	}

	var players []*models.Player
	if err := query.Order("id ASC").Limit(limit).Find(&players).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return players, nil
}
