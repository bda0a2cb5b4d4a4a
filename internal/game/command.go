package game

import "time"

// Command 作用于比赛的命令
type Command interface {
	Name() string
	apply(g *Game, now time.Time) (*Result, error)
}

// Result 命令执行结果
type Result struct {
	Game *Game
	Turn *TurnResult // 仅投掷命令
}

// Apply 执行命令，返回新的比赛；失败时原比赛不变
func Apply(g *Game, cmd Command, now time.Time) (*Result, error) {
	return cmd.apply(g, now)
}

// StartCommand 开始
type StartCommand struct{}

// ThrowCommand 投掷
type ThrowCommand struct {
	Input ThrowInput
}

// NextPlayerCommand 跳到下一名选手
type NextPlayerCommand struct{}

// PauseCommand 暂停
type PauseCommand struct{}

// ResumeCommand 恢复
type ResumeCommand struct{}

// AbandonCommand 放弃
type AbandonCommand struct{}

func (StartCommand) Name() string      { return "start" }
func (ThrowCommand) Name() string      { return "throw" }
func (NextPlayerCommand) Name() string { return "next_player" }
func (PauseCommand) Name() string      { return "pause" }
func (ResumeCommand) Name() string     { return "resume" }
func (AbandonCommand) Name() string    { return "abandon" }

func (StartCommand) apply(g *Game, now time.Time) (*Result, error) {
	return wrap(Start(g, now))
}

func (c ThrowCommand) apply(g *Game, now time.Time) (*Result, error) {
	ng, turn, err := AddThrow(g, c.Input, now)
	if err != nil {
		return nil, err
	}
	return &Result{Game: ng, Turn: turn}, nil
}

func (NextPlayerCommand) apply(g *Game, _ time.Time) (*Result, error) {
	return wrap(NextPlayer(g))
}

func (PauseCommand) apply(g *Game, now time.Time) (*Result, error) {
	return wrap(Pause(g, now))
}

func (ResumeCommand) apply(g *Game, now time.Time) (*Result, error) {
	return wrap(Resume(g, now))
}

func (AbandonCommand) apply(g *Game, now time.Time) (*Result, error) {
	return wrap(Abandon(g, now))
}

func wrap(g *Game, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	return &Result{Game: g}, nil
}
