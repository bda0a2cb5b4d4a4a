package service

import (
	"context"
	"time"

	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/game/scoring"
	"github.com/wfunc/darts-engine/internal/game/stats"
	"github.com/wfunc/darts-engine/internal/models"
)

// MatchService 比赛服务接口，同一场比赛的写操作串行执行
type MatchService interface {
	CreateGame(ctx context.Context, callerID uint, req *CreateGameRequest) (*GameView, error)
	Get(ctx context.Context, id string) (*GameView, error)
	// Authorize 校验比赛归属调用者
	Authorize(ctx context.Context, callerID uint, id string) error
	List(ctx context.Context, callerID uint, status string, page, pageSize int) ([]*GameSummary, int64, error)

	Start(ctx context.Context, id string) (*GameView, error)
	AddThrow(ctx context.Context, id string, in game.ThrowInput) (*ThrowResponse, error)
	Pause(ctx context.Context, id string) (*GameView, error)
	Resume(ctx context.Context, id string) (*GameView, error)
	Abandon(ctx context.Context, id string) (*GameView, error)

	// SubmitThrow 供电子镖盘调用
	SubmitThrow(ctx context.Context, gameID string, in game.ThrowInput) error
	// SweepIdle 放弃超过 idleFor 没有变化的进行中或暂停的比赛
	SweepIdle(ctx context.Context, idleFor time.Duration) (int, error)
}

// PlayerService 选手服务接口
type PlayerService interface {
	CreatePlayer(ctx context.Context, ownerID uint, name string) (*models.Player, error)
	GetPlayer(ctx context.Context, id uint) (*models.Player, error)
	ListPlayers(ctx context.Context, ownerID uint, page, pageSize int) ([]*models.Player, int64, error)
	Leaderboard(ctx context.Context, mode scoring.GameMode, limit int) ([]*models.Player, error)
}

// CreateGameRequest 创建比赛请求
type CreateGameRequest struct {
	GameMode          scoring.GameMode `json:"game_mode"` // 为空时使用默认模式
	PlayerIDs         []uint           `json:"player_ids" binding:"required,min=1"`
	StartingScore     int              `json:"starting_score"`
	DoubleIn          bool             `json:"double_in"`
	DoubleOut         *bool            `json:"double_out"`
	Legs              int              `json:"legs"`
	Sets              int              `json:"sets"`
	ClockFinishOnBull bool             `json:"clock_finish_on_bull"`
}

// GameView 比赛及各选手本场统计
type GameView struct {
	Game    *game.Game                   `json:"game"`
	Version int                          `json:"version"`
	Stats   map[uint]stats.SessionStats `json:"stats"`
}

// ThrowResponse 一轮投掷的结果
type ThrowResponse struct {
	*GameView
	Turn         *game.TurnResult             `json:"turn"`
	Achievements map[uint][]stats.Achievement `json:"achievements,omitempty"`
}

// GameSummary 比赛列表项
type GameSummary struct {
	ID         string     `json:"id"`
	GameMode   string     `json:"game_mode"`
	Status     string     `json:"status"`
	Version    int        `json:"version"`
	WinnerRef  *uint      `json:"winner_ref,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newView(g *game.Game, version int) *GameView {
	view := &GameView{
		Game:    g,
		Version: version,
		Stats:   make(map[uint]stats.SessionStats, len(g.Players)),
	}
	for _, p := range g.Players {
		view.Stats[p.PlayerRef] = stats.Session(g, p)
	}
	return view
}

func newSummary(r *models.GameRecord) *GameSummary {
	return &GameSummary{
		ID:         r.ID,
		GameMode:   r.GameMode,
		Status:     r.Status,
		Version:    r.Version,
		WinnerRef:  r.WinnerRef,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		CreatedAt:  r.CreatedAt,
	}
}
