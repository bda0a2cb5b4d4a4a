package game

import (
	"time"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game/scoring"
)

// ThrowInput 一轮投掷输入
type ThrowInput struct {
	Dart1 *scoring.Dart `json:"dart1"`
	Dart2 *scoring.Dart `json:"dart2"`
	Dart3 *scoring.Dart `json:"dart3"`
}

// NewThrowInput 由三镖构造输入
func NewThrowInput(d1, d2, d3 scoring.Dart) ThrowInput {
	return ThrowInput{Dart1: &d1, Dart2: &d2, Dart3: &d3}
}

// Darts 校验并返回三镖
func (in ThrowInput) Darts() ([scoring.DartsPerTurn]scoring.Dart, error) {
	darts := make([]scoring.Dart, 0, scoring.DartsPerTurn)
	for _, d := range []*scoring.Dart{in.Dart1, in.Dart2, in.Dart3} {
		if d != nil {
			darts = append(darts, *d)
		}
	}
	return scoring.ParseTurn(darts)
}

// TurnResult 一轮投掷的结果
type TurnResult struct {
	PlayerRef  uint               `json:"playerRef"`
	Throw      scoring.Throw      `json:"throw"`
	FinishType scoring.FinishType `json:"finishType"`
	LegWon     bool               `json:"legWon"`
	SetWon     bool               `json:"setWon"`
	MatchWon   bool               `json:"matchWon"`
}

// NewGame 创建等待开始的比赛
func NewGame(id string, mode scoring.GameMode, settings scoring.Settings, players []PlayerRef, now time.Time) (*Game, error) {
	rules, err := scoring.RulesFor(mode)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidPlayers, "至少需要一名选手")
	}

	seen := make(map[uint]bool, len(players))
	g := &Game{
		ID:             id,
		GameMode:       mode,
		CustomSettings: settings,
		Status:         StatusWaiting,
		Players:        make([]*PlayerGameData, 0, len(players)),
		CurrentLeg:     1,
		CurrentSet:     1,
		CreatedAt:      now,
		UpdatedAt:      now,
		rules:          rules,
	}
	for _, ref := range players {
		if seen[ref.ID] {
			return nil, apperrors.Newf(apperrors.ErrInvalidPlayers, "选手 %d 重复", ref.ID)
		}
		seen[ref.ID] = true
		g.Players = append(g.Players, &PlayerGameData{
			PlayerRef:  ref.ID,
			Name:       ref.Name,
			Throws:     []scoring.Throw{},
			FinishType: scoring.FinishNone,
		})
	}
	return g, nil
}

// Start 开始比赛，初始化各选手的起始分
func Start(g *Game, now time.Time) (*Game, error) {
	rules, err := g.Rules()
	if err != nil {
		return nil, err
	}
	ng := g.Clone()
	if err := lifecycle.Fire(ng, EventStart, now); err != nil {
		return nil, err
	}
	ng.LegStarterIndex = 0
	ng.CurrentPlayerIndex = 0
	resetLeg(ng, rules)
	return ng, nil
}

// resetLeg 新一局开始时重置分数
func resetLeg(g *Game, rules scoring.Rules) {
	start := rules.InitialScore(g.CustomSettings)
	for _, p := range g.Players {
		p.StartingScore = start
		p.CurrentScore = start
		p.Opened = false
		p.CricketMarks = nil
		if g.GameMode == scoring.ModeCricket {
			p.CricketMarks = scoring.NewCricketMarks()
		}
	}
}

// AddThrow 记录当前选手的一轮投掷
//
// 输入校验和状态检查都在修改之前完成，失败时原比赛不变。
// 爆镖是正常结果：分数回退，记录仍写入历史，轮到下一名选手。
func AddThrow(g *Game, in ThrowInput, now time.Time) (*Game, *TurnResult, error) {
	darts, err := in.Darts()
	if err != nil {
		return nil, nil, err
	}
	if g.Status != StatusActive {
		return nil, nil, apperrors.Newf(apperrors.ErrInvalidState, "比赛状态为%s，不能投掷", g.Status)
	}
	rules, err := g.Rules()
	if err != nil {
		return nil, nil, err
	}
	if _, err := g.CurrentPlayer(); err != nil {
		return nil, nil, err
	}

	ng := g.Clone()
	idx := ng.CurrentPlayerIndex
	p := ng.Players[idx]

	opponents := make([]scoring.PlayerView, 0, len(ng.Players)-1)
	for i, o := range ng.Players {
		if i != idx {
			opponents = append(opponents, o.view())
		}
	}

	countdown := ng.GameMode.IsCountdown()
	if countdown && scoring.CanCheckout(p.CurrentScore, ng.CustomSettings.DoubleOut) {
		p.CheckoutAttempts++
	}

	out := rules.Evaluate(scoring.TurnContext{
		Settings:  ng.CustomSettings,
		Darts:     darts,
		Player:    p.view(),
		Opponents: opponents,
	})

	throw := scoring.Throw{
		Darts:       darts,
		Total:       out.Scored,
		IsBust:      out.IsBust,
		IsCheckout:  out.IsWin,
		ScoreBefore: p.CurrentScore,
		ScoreAfter:  out.NewScore,
		Leg:         ng.CurrentLeg,
		Set:         ng.CurrentSet,
		ThrownAt:    now,
	}

	if out.IsWin && ng.GameMode == scoring.ModeAroundTheClock {
		legDarts := legDartCount(p, ng.CurrentSet, ng.CurrentLeg) + out.WinningDart + 1
		if p.DartsToFinish == 0 || legDarts < p.DartsToFinish {
			p.DartsToFinish = legDarts
		}
	}

	p.CurrentScore = out.NewScore
	p.Opened = out.Opened
	if out.Marks != nil {
		p.CricketMarks = out.Marks
	}
	recordThrow(p, throw)

	result := &TurnResult{
		PlayerRef:  p.PlayerRef,
		Throw:      throw,
		FinishType: out.FinishType,
	}
	ng.UpdatedAt = now

	if !out.IsWin {
		return advance(ng), result, nil
	}

	p.FinishType = out.FinishType
	if countdown {
		p.Checkouts++
	}
	result.LegWon = true
	result.SetWon, result.MatchWon = awardLeg(ng, p)

	if result.MatchWon {
		ref := p.PlayerRef
		ng.WinnerRef = &ref
		if err := lifecycle.Fire(ng, EventFinish, now); err != nil {
			return nil, nil, err
		}
		return ng, result, nil
	}

	ng.LegStarterIndex = (ng.LegStarterIndex + 1) % len(ng.Players)
	ng.CurrentPlayerIndex = ng.LegStarterIndex
	resetLeg(ng, rules)
	return ng, result, nil
}

// recordThrow 写入历史并更新本场统计
func recordThrow(p *PlayerGameData, t scoring.Throw) {
	p.Throws = append(p.Throws, t)
	p.DartsThrown += scoring.DartsPerTurn

	switch {
	case t.Total == scoring.MaxTurnScore:
		p.ScoreMilestones.OneEighty++
	case t.Total >= 140:
		p.ScoreMilestones.OneFourty++
	case t.Total >= 100:
		p.ScoreMilestones.Hundred++
	}
	for _, d := range t.Darts {
		if d.IsInnerBull() {
			p.ScoreMilestones.Bullseye++
		}
	}

	if t.Total > p.HighestScore {
		p.HighestScore = t.Total
	}
	p.Average = RecomputeAverage(p.Throws)
}

// RecomputeAverage 由完整历史重新计算每轮平均分
func RecomputeAverage(throws []scoring.Throw) float64 {
	var sum int64
	for _, t := range throws {
		sum += int64(t.Total)
	}
	return scoring.RoundedMean(sum, int64(len(throws)))
}

// legDartCount 本局此前已投镖数
func legDartCount(p *PlayerGameData, set, leg int) int {
	n := 0
	for _, t := range p.Throws {
		if t.Set == set && t.Leg == leg {
			n += scoring.DartsPerTurn
		}
	}
	return n
}

// awardLeg 记一局胜利，返回是否赢得一盘和整场比赛
func awardLeg(g *Game, p *PlayerGameData) (setWon, matchWon bool) {
	p.LegsWon++
	if p.LegsWon < g.CustomSettings.LegsToWinSet() {
		g.CurrentLeg++
		return false, false
	}

	p.SetsWon++
	if p.SetsWon >= g.CustomSettings.SetsToWinMatch() {
		return true, true
	}
	for _, o := range g.Players {
		o.LegsWon = 0
	}
	g.CurrentSet++
	g.CurrentLeg = 1
	return true, false
}

// NextPlayer 轮到下一名选手，非进行中的比赛不变
func NextPlayer(g *Game) (*Game, error) {
	if _, err := g.CurrentPlayer(); err != nil {
		return nil, err
	}
	return advance(g.Clone()), nil
}

func advance(g *Game) *Game {
	if g.Status == StatusActive {
		g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.Players)
	}
	return g
}

// Pause 暂停
func Pause(g *Game, now time.Time) (*Game, error) {
	return fire(g, EventPause, now)
}

// Resume 恢复
func Resume(g *Game, now time.Time) (*Game, error) {
	return fire(g, EventResume, now)
}

// Abandon 放弃比赛，不产生胜者
func Abandon(g *Game, now time.Time) (*Game, error) {
	return fire(g, EventAbandon, now)
}

func fire(g *Game, event Event, now time.Time) (*Game, error) {
	ng := g.Clone()
	if err := lifecycle.Fire(ng, event, now); err != nil {
		return nil, err
	}
	return ng, nil
}
