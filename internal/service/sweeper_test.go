package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingSweeper struct {
	MatchService
	calls atomic.Int32
}

func (c *countingSweeper) SweepIdle(context.Context, time.Duration) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestSweeper_Run(t *testing.T) {
	t.Run("定期清理", func(t *testing.T) {
		matches := &countingSweeper{}
		s := NewSweeper(matches, 5*time.Millisecond, time.Hour, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return matches.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run 未退出")
		}
	})

	t.Run("关闭", func(t *testing.T) {
		matches := &countingSweeper{}
		s := NewSweeper(matches, 0, time.Hour, zap.NewNop())
		// 间隔为0时立即返回
		s.Run(context.Background())
		assert.Zero(t, matches.calls.Load())
	})
}
