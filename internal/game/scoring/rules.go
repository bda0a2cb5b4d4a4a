package scoring

import (
	"github.com/shopspring/decimal"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
)

// GameMode 比赛模式
type GameMode string

const (
	Mode301            GameMode = "301"
	Mode501            GameMode = "501"
	Mode701            GameMode = "701"
	ModeCricket        GameMode = "cricket"
	ModeAroundTheClock GameMode = "aroundTheClock"
	ModeCustom         GameMode = "custom"
)

// DefaultCustomStartingScore 自定义模式未设置起始分时的默认值
const DefaultCustomStartingScore = 501

// MaxCheckout 三镖可完成的最高分
const MaxCheckout = 170

// IsCountdown 是否倒数计分模式
func (m GameMode) IsCountdown() bool {
	switch m {
	case Mode301, Mode501, Mode701, ModeCustom:
		return true
	default:
		return false
	}
}

// Valid 模式是否受支持
func (m GameMode) Valid() bool {
	return m.IsCountdown() || m == ModeCricket || m == ModeAroundTheClock
}

// Settings 比赛自定义设置
type Settings struct {
	StartingScore     int  `json:"startingScore,omitempty"`
	DoubleIn          bool `json:"doubleIn"`
	DoubleOut         bool `json:"doubleOut"`
	Legs              int  `json:"legs,omitempty"`
	Sets              int  `json:"sets,omitempty"`
	ClockFinishOnBull bool `json:"clockFinishOnBull,omitempty"`
}

// LegsToWinSet 赢得一盘所需局数
func (s Settings) LegsToWinSet() int {
	if s.Legs < 1 {
		return 1
	}
	return s.Legs
}

// SetsToWinMatch 赢得比赛所需盘数
func (s Settings) SetsToWinMatch() int {
	if s.Sets < 1 {
		return 1
	}
	return s.Sets
}

// Validate 校验设置
func (s Settings) Validate() error {
	if s.StartingScore < 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "起始分 %d 不能为负", s.StartingScore)
	}
	if s.Legs < 0 || s.Sets < 0 {
		return apperrors.New(apperrors.ErrInvalidParam, "局数和盘数不能为负")
	}
	return nil
}

// PlayerView 计分规则所需的选手状态快照
type PlayerView struct {
	Score  int            // 倒数模式为剩余分，米字为得分，绕圈为已完成位置
	Opened bool           // double-in 是否已开局
	Marks  map[string]int // 米字标记
}

// TurnContext 一轮计分的输入
type TurnContext struct {
	Settings  Settings
	Darts     [DartsPerTurn]Dart
	Player    PlayerView
	Opponents []PlayerView
}

// Outcome 一轮计分的结果
type Outcome struct {
	NewScore    int
	IsBust      bool
	IsWin       bool
	FinishType  FinishType
	Opened      bool
	Scored      int // 本轮计入的镖分，double-in 开局前的镖不计
	Marks       map[string]int
	WinningDart int // 获胜镖的下标，未获胜时为 -1
}

// Rules 一种比赛模式的计分规则，无状态
type Rules interface {
	Mode() GameMode
	InitialScore(settings Settings) int
	Evaluate(ctx TurnContext) Outcome
}

// RulesFor 根据模式选择计分规则
func RulesFor(mode GameMode) (Rules, error) {
	switch {
	case mode.IsCountdown():
		return StandardRules{mode: mode}, nil
	case mode == ModeCricket:
		return CricketRules{}, nil
	case mode == ModeAroundTheClock:
		return ClockRules{}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidGameMode, "模式: %q", mode)
	}
}

// StartingScore 模式对应的起始分
func StartingScore(mode GameMode, settings Settings) int {
	switch mode {
	case Mode301:
		return 301
	case Mode501:
		return 501
	case Mode701:
		return 701
	case ModeCustom:
		if settings.StartingScore > 0 {
			return settings.StartingScore
		}
		return DefaultCustomStartingScore
	default:
		return 0
	}
}

// 双倍结束时三镖无法完成的分数
var bogeyNumbers = map[int]bool{169: true, 168: true, 166: true, 165: true, 163: true, 162: true, 159: true}

// CanCheckout 当前剩余分是否可能在一轮内完成
func CanCheckout(score int, doubleOut bool) bool {
	if doubleOut {
		return score >= 2 && score <= MaxCheckout && !bogeyNumbers[score]
	}
	return score >= 1 && score <= MaxTurnScore
}

// RoundedMean 求平均并保留两位小数
func RoundedMean(sum int64, count int64) float64 {
	if count == 0 {
		return 0
	}
	mean := decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(count), 2)
	f, _ := mean.Float64()
	return f
}

// RoundedRatio 比率保留四位小数
func RoundedRatio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	r := decimal.NewFromInt(int64(part)).DivRound(decimal.NewFromInt(int64(whole)), 4)
	f, _ := r.Float64()
	return f
}
