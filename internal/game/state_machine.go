package game

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
)

// Event 生命周期事件
type Event string

const (
	EventStart   Event = "start"
	EventPause   Event = "pause"
	EventResume  Event = "resume"
	EventFinish  Event = "finish"
	EventAbandon Event = "abandon"
)

// StateTransition 状态转换定义
type StateTransition struct {
	From   Status
	Event  Event
	To     Status
	Action func(g *Game, now time.Time)
}

// StateMachine 比赛生命周期状态机，只保存转换表，不持有比赛数据
type StateMachine struct {
	transitions map[string]StateTransition
}

// NewStateMachine 创建状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{transitions: make(map[string]StateTransition)}
	sm.initTransitions()
	return sm
}

// initTransitions 初始化状态转换规则
func (sm *StateMachine) initTransitions() {
	// 等待 -> 进行中
	sm.addTransition(StateTransition{
		From:  StatusWaiting,
		Event: EventStart,
		To:    StatusActive,
		Action: func(g *Game, now time.Time) {
			g.StartedAt = &now
		},
	})

	// 进行中 <-> 暂停
	sm.addTransition(StateTransition{From: StatusActive, Event: EventPause, To: StatusPaused})
	sm.addTransition(StateTransition{From: StatusPaused, Event: EventResume, To: StatusActive})

	// 进行中 -> 结束（有胜者）
	sm.addTransition(StateTransition{
		From:   StatusActive,
		Event:  EventFinish,
		To:     StatusFinished,
		Action: closeClock,
	})

	// 进行中/暂停 -> 放弃
	for _, from := range []Status{StatusActive, StatusPaused} {
		sm.addTransition(StateTransition{
			From:   from,
			Event:  EventAbandon,
			To:     StatusAbandoned,
			Action: closeClock,
		})
	}
}

// closeClock 记录结束时间与时长
func closeClock(g *Game, now time.Time) {
	g.FinishedAt = &now
	if g.StartedAt != nil {
		d := int64(now.Sub(*g.StartedAt).Seconds())
		g.DurationSeconds = &d
	}
}

// addTransition 添加状态转换
func (sm *StateMachine) addTransition(t StateTransition) {
	sm.transitions[transitionKey(t.From, t.Event)] = t
}

// transitionKey 生成转换键
func transitionKey(state Status, event Event) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// Fire 在比赛上触发事件，非法转换不修改比赛
func (sm *StateMachine) Fire(g *Game, event Event, now time.Time) error {
	t, ok := sm.transitions[transitionKey(g.Status, event)]
	if !ok {
		return apperrors.Newf(apperrors.ErrInvalidState, "状态=%s, 事件=%s", g.Status, event)
	}
	if t.Action != nil {
		t.Action(g, now)
	}
	g.Status = t.To
	g.UpdatedAt = now
	return nil
}

// CanFire 检查是否可以转换
func (sm *StateMachine) CanFire(state Status, event Event) bool {
	_, ok := sm.transitions[transitionKey(state, event)]
	return ok
}

// ValidEvents 某状态下的有效事件
func (sm *StateMachine) ValidEvents(state Status) []Event {
	var events []Event
	prefix := string(state) + ":"
	for key, t := range sm.transitions {
		if strings.HasPrefix(key, prefix) {
			events = append(events, t.Event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

// lifecycle 全局转换表，只读
var lifecycle = NewStateMachine()
