package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/darts-engine/internal/config"
	"github.com/wfunc/darts-engine/internal/game/scoring"
	"github.com/wfunc/darts-engine/internal/game/stats"
	"github.com/wfunc/darts-engine/internal/lock"
	"github.com/wfunc/darts-engine/internal/notify"
	"github.com/wfunc/darts-engine/internal/repository"
)

// Config 服务配置
type Config struct {
	DefaultMode      string
	MaxPlayers       int
	DefaultDoubleOut bool
	LockWait         time.Duration
	IdleTimeout      time.Duration
	SweepInterval    time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		DefaultMode:      "501",
		MaxPlayers:       8,
		DefaultDoubleOut: true,
		LockWait:         3 * time.Second,
		IdleTimeout:      2 * time.Hour,
		SweepInterval:    5 * time.Minute,
	}
}

// ConfigFrom 由全局配置的比赛段生成服务配置
func ConfigFrom(c config.GameConfig) *Config {
	return &Config{
		DefaultMode:      c.DefaultMode,
		MaxPlayers:       c.MaxPlayers,
		DefaultDoubleOut: c.DefaultDoubleOut,
		LockWait:         c.LockWait,
		IdleTimeout:      c.IdleTimeout,
		SweepInterval:    c.SweepInterval,
	}
}

// Services 服务集合
type Services struct {
	Match   MatchService
	Player  PlayerService
	Sweeper *Sweeper
}

// NewServices 创建服务集合
func NewServices(repos *repository.Manager, locker lock.Locker, publisher notify.Publisher, cfg *Config, log *zap.Logger) *Services {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}

	match := NewMatchService(
		repos,
		locker,
		publisher,
		stats.NewAggregator(),
		MatchOptions{
			DefaultMode:      scoring.GameMode(cfg.DefaultMode),
			MaxPlayers:       cfg.MaxPlayers,
			DefaultDoubleOut: cfg.DefaultDoubleOut,
			LockWait:         cfg.LockWait,
		},
		log.Named("match"),
	)

	return &Services{
		Match:   match,
		Player:  NewPlayerService(repos.Player(), log.Named("player")),
		Sweeper: NewSweeper(match, cfg.SweepInterval, cfg.IdleTimeout, log.Named("sweeper")),
	}
}
