package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game/scoring"
	"github.com/wfunc/darts-engine/internal/models"
	"github.com/wfunc/darts-engine/internal/repository"
)

const maxPlayerNameLen = 100

// playerService 选手服务实现
type playerService struct {
	playerRepo repository.PlayerRepository
	log        *zap.Logger
}

// NewPlayerService 创建选手服务
func NewPlayerService(playerRepo repository.PlayerRepository, log *zap.Logger) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		log:        log,
	}
}

// CreatePlayer 在调用者名下创建选手
func (s *playerService) CreatePlayer(ctx context.Context, ownerID uint, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "选手名不能为空")
	}
	if utf8.RuneCountInString(name) > maxPlayerNameLen {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "选手名最长%d个字符", maxPlayerNameLen)
	}

	player := &models.Player{OwnerID: ownerID, Name: name, Status: "active"}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		s.log.Error("创建选手失败", zap.Error(err), zap.Uint("owner", ownerID))
		return nil, err
	}
	return player, nil
}

// GetPlayer 获取选手及生涯统计
func (s *playerService) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	return s.playerRepo.FindByID(ctx, id)
}

// ListPlayers 调用者名下的选手
func (s *playerService) ListPlayers(ctx context.Context, ownerID uint, page, pageSize int) ([]*models.Player, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	players, err := s.playerRepo.ListByOwner(ctx, ownerID, pagination)
	if err != nil {
		return nil, 0, err
	}
	return players, pagination.Total, nil
}

// Leaderboard 排行榜
func (s *playerService) Leaderboard(ctx context.Context, mode scoring.GameMode, limit int) ([]*models.Player, error) {
	if mode != "" && !mode.Valid() {
		return nil, apperrors.Newf(apperrors.ErrInvalidGameMode, "不支持的模式: %s", mode)
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.playerRepo.Leaderboard(ctx, mode, limit)
}
