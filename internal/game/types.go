package game

import (
	"time"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game/scoring"
)

// Status 比赛生命周期状态
type Status string

const (
	StatusWaiting   Status = "waiting"   // 等待开始
	StatusActive    Status = "active"    // 进行中
	StatusPaused    Status = "paused"    // 暂停
	StatusFinished  Status = "finished"  // 已结束（有胜者）
	StatusAbandoned Status = "abandoned" // 已放弃
)

// IsTerminal 是否终止状态
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusAbandoned
}

// PlayerRef 参赛选手引用
type PlayerRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ScoreMilestones 高分区间计数（互斥区间）
type ScoreMilestones struct {
	OneEighty int `json:"oneEighty"` // 180
	OneFourty int `json:"oneFourty"` // 140-179
	Hundred   int `json:"hundred"`   // 100-139
	Bullseye  int `json:"bullseye"`  // 内牛眼镖数
}

// PlayerGameData 单场比赛中的选手数据，只属于所在的比赛
type PlayerGameData struct {
	PlayerRef        uint                `json:"playerRef"`
	Name             string              `json:"name"`
	CurrentScore     int                 `json:"currentScore"`
	StartingScore    int                 `json:"startingScore"`
	Throws           []scoring.Throw     `json:"throws"`
	DartsThrown      int                 `json:"dartsThrown"`
	FinishType       scoring.FinishType  `json:"finishType"`
	CheckoutAttempts int                 `json:"checkoutAttempts"`
	Checkouts        int                 `json:"checkouts"`
	Average          float64             `json:"average"`
	HighestScore     int                 `json:"highestScore"`
	ScoreMilestones  ScoreMilestones     `json:"scoreMilestones"`
	CricketMarks     map[string]int      `json:"cricketMarks,omitempty"`
	Opened           bool                `json:"opened,omitempty"`
	LegsWon          int                 `json:"legsWon"`
	SetsWon          int                 `json:"setsWon"`
	DartsToFinish    int                 `json:"dartsToFinish,omitempty"`
}

// view 计分规则所需的快照
func (p *PlayerGameData) view() scoring.PlayerView {
	return scoring.PlayerView{
		Score:  p.CurrentScore,
		Opened: p.Opened,
		Marks:  p.CricketMarks,
	}
}

// clone 深拷贝
func (p *PlayerGameData) clone() *PlayerGameData {
	cp := *p
	cp.Throws = append([]scoring.Throw(nil), p.Throws...)
	if p.CricketMarks != nil {
		cp.CricketMarks = make(map[string]int, len(p.CricketMarks))
		for k, v := range p.CricketMarks {
			cp.CricketMarks[k] = v
		}
	}
	return &cp
}

// Game 比赛聚合
type Game struct {
	ID                 string             `json:"id"`
	GameMode           scoring.GameMode   `json:"gameMode"`
	CustomSettings     scoring.Settings   `json:"customSettings"`
	Status             Status             `json:"status"`
	Players            []*PlayerGameData  `json:"players"`
	CurrentPlayerIndex int                `json:"currentPlayerIndex"`
	LegStarterIndex    int                `json:"legStarterIndex"`
	CurrentLeg         int                `json:"currentLeg"`
	CurrentSet         int                `json:"currentSet"`
	WinnerRef          *uint              `json:"winnerRef,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	StartedAt          *time.Time         `json:"startedAt,omitempty"`
	FinishedAt         *time.Time         `json:"finishedAt,omitempty"`
	DurationSeconds    *int64             `json:"durationSeconds,omitempty"`
	UpdatedAt          time.Time          `json:"updatedAt"`

	rules scoring.Rules
}

// Rules 返回创建时选定的计分规则
func (g *Game) Rules() (scoring.Rules, error) {
	if g.rules == nil {
		r, err := scoring.RulesFor(g.GameMode)
		if err != nil {
			return nil, err
		}
		g.rules = r
	}
	return g.rules, nil
}

// CurrentPlayer 当前出手选手，每次读取都校验下标
func (g *Game) CurrentPlayer() (*PlayerGameData, error) {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil, apperrors.Newf(apperrors.ErrDataIntegrity,
			"当前选手下标 %d 越界（共%d人）", g.CurrentPlayerIndex, len(g.Players))
	}
	return g.Players[g.CurrentPlayerIndex], nil
}

// Player 按选手ID查找
func (g *Game) Player(ref uint) *PlayerGameData {
	for _, p := range g.Players {
		if p.PlayerRef == ref {
			return p
		}
	}
	return nil
}

// Winner 胜者数据
func (g *Game) Winner() *PlayerGameData {
	if g.WinnerRef == nil {
		return nil
	}
	return g.Player(*g.WinnerRef)
}

// LegsPlayed 已进行的局数，按全部选手投掷中出现的（盘, 局）计
//
// 对手在某选手首轮之前结束的局同样计入。
func (g *Game) LegsPlayed() int {
	legs := make(map[[2]int]struct{})
	for _, p := range g.Players {
		for _, t := range p.Throws {
			legs[[2]int{t.Set, t.Leg}] = struct{}{}
		}
	}
	return len(legs)
}

// Clone 深拷贝，转换函数在副本上修改
func (g *Game) Clone() *Game {
	cp := *g
	cp.Players = make([]*PlayerGameData, len(g.Players))
	for i, p := range g.Players {
		cp.Players[i] = p.clone()
	}
	cp.WinnerRef = copyPtr(g.WinnerRef)
	cp.StartedAt = copyPtr(g.StartedAt)
	cp.FinishedAt = copyPtr(g.FinishedAt)
	cp.DurationSeconds = copyPtr(g.DurationSeconds)
	return &cp
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
