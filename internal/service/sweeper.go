package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper 定期放弃闲置比赛
type Sweeper struct {
	matches  MatchService
	interval time.Duration
	idleFor  time.Duration
	log      *zap.Logger
}

// NewSweeper 创建闲置比赛清理任务
func NewSweeper(matches MatchService, interval, idleFor time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		matches:  matches,
		interval: interval,
		idleFor:  idleFor,
		log:      log,
	}
}

// Run 阻塞运行直到 ctx 结束
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 || s.idleFor <= 0 {
		s.log.Info("闲置比赛清理已关闭")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	n, err := s.matches.SweepIdle(ctx, s.idleFor)
	if err != nil {
		s.log.Error("清理闲置比赛失败", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("已放弃闲置比赛", zap.Int("count", n), zap.Duration("idle_for", s.idleFor))
	}
}
