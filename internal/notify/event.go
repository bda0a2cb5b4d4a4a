// Package notify 发布比赛事件
package notify

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/game/stats"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventType 事件类型，同时作为路由键
type EventType string

const (
	EventCreated   EventType = "game.created"
	EventStarted   EventType = "game.started"
	EventThrow     EventType = "game.throw"
	EventPaused    EventType = "game.paused"
	EventResumed   EventType = "game.resumed"
	EventFinished  EventType = "game.finished"
	EventAbandoned EventType = "game.abandoned"
)

// Event 比赛事件
type Event struct {
	Type         EventType                    `json:"type"`
	GameID       string                       `json:"gameId"`
	Version      int                          `json:"version"`
	OccurredAt   time.Time                    `json:"occurredAt"`
	Game         *game.Game                   `json:"game"`
	Turn         *game.TurnResult             `json:"turn,omitempty"`
	Achievements map[uint][]stats.Achievement `json:"achievements,omitempty"`
}

// Marshal 序列化事件
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Nop 丢弃所有事件
type Nop struct{}

// Publish 实现 Publisher
func (Nop) Publish(context.Context, *Event) error { return nil }

// Multi 依次发布到多个目标，全部尝试后合并错误
type Multi []Publisher

// Publish 实现 Publisher
func (m Multi) Publish(ctx context.Context, e *Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Recorder 记录事件，用于测试和调试接口
type Recorder struct {
	mu     sync.Mutex
	events []*Event
}

// Publish 实现 Publisher
func (r *Recorder) Publish(_ context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events 已记录的事件
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types 已记录的事件类型
func (r *Recorder) Types() []EventType {
	events := r.Events()
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
