package stats

import (
	"time"

	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/game/scoring"
)

// 成就名称
const (
	AchievementFirstGame = "first_game"
	AchievementFirst180  = "first_180"
	AchievementTenWins   = "ten_wins"
)

// AchievementRule 成就解锁条件
type AchievementRule struct {
	Name        string
	Description string
	Unlocked    func(ps *PlayerStats) bool
}

// DefaultAchievements 默认成就
var DefaultAchievements = []AchievementRule{
	{
		Name:        AchievementFirstGame,
		Description: "完成第一场比赛",
		Unlocked:    func(ps *PlayerStats) bool { return ps.GamesPlayed >= 1 },
	},
	{
		Name:        AchievementFirst180,
		Description: "投出第一个180",
		Unlocked:    func(ps *PlayerStats) bool { return ps.Total180s >= 1 },
	},
	{
		Name:        AchievementTenWins,
		Description: "赢得10场比赛",
		Unlocked:    func(ps *PlayerStats) bool { return ps.GamesWon >= 10 },
	},
}

// Aggregator 生涯统计累计器
type Aggregator struct {
	rules []AchievementRule
	now   func() time.Time
}

// Option 累计器选项
type Option func(*Aggregator)

// WithClock 设置时钟
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithAchievements 替换成就规则
func WithAchievements(rules []AchievementRule) Option {
	return func(a *Aggregator) { a.rules = rules }
}

// NewAggregator 创建累计器
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		rules: DefaultAchievements,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fold 将比赛中一名选手的数据并入生涯统计，返回本次新解锁的成就
func (a *Aggregator) Fold(ps *PlayerStats, g *game.Game, p *game.PlayerGameData) []Achievement {
	mode := g.GameMode
	won := g.WinnerRef != nil && *g.WinnerRef == p.PlayerRef
	session := Session(g, p)

	ps.GamesPlayed++
	if won {
		ps.GamesWon++
	}
	for _, t := range p.Throws {
		ps.TotalScore += int64(t.Total)
	}
	ps.TotalDarts += int64(p.DartsThrown)
	ps.LegsPlayed += session.LegsPlayed
	ps.LegsWon += session.LegsWon
	ps.Total180s += p.ScoreMilestones.OneEighty

	if p.HighestScore > ps.HighestScore {
		ps.HighestScore = p.HighestScore
	}
	if session.BestCheckout > ps.BestCheckout {
		ps.BestCheckout = session.BestCheckout
	}
	if mode == scoring.ModeAroundTheClock && p.DartsToFinish > 0 &&
		(ps.BestClockDarts == 0 || p.DartsToFinish < ps.BestClockDarts) {
		ps.BestClockDarts = p.DartsToFinish
	}

	ps.AverageScore = scoring.RoundedMean(ps.TotalScore*scoring.DartsPerTurn, ps.TotalDarts)
	ps.AverageDartsPerLeg = scoring.RoundedMean(ps.TotalDarts, int64(ps.LegsPlayed))

	if ps.GameModeStats == nil {
		ps.GameModeStats = make(map[string]ModeStats)
	}
	ms := ps.GameModeStats[string(mode)]
	ms.Played++
	if won {
		ms.Won++
	}
	ps.GameModeStats[string(mode)] = ms

	return a.CheckAchievements(ps)
}

// CheckAchievements 检查并追加满足条件的成就，按名称去重
func (a *Aggregator) CheckAchievements(ps *PlayerStats) []Achievement {
	var unlocked []Achievement
	for _, rule := range a.rules {
		if ps.HasAchievement(rule.Name) || !rule.Unlocked(ps) {
			continue
		}
		ach := Achievement{
			Name:        rule.Name,
			Description: rule.Description,
			UnlockedAt:  a.now(),
		}
		ps.Achievements = append(ps.Achievements, ach)
		unlocked = append(unlocked, ach)
	}
	return unlocked
}

// FoldGame 比赛结束后为全部选手累计统计，缺失的选手跳过
func (a *Aggregator) FoldGame(g *game.Game, players map[uint]*PlayerStats) map[uint][]Achievement {
	unlocked := make(map[uint][]Achievement)
	for _, p := range g.Players {
		ps, ok := players[p.PlayerRef]
		if !ok {
			continue
		}
		if got := a.Fold(ps, g, p); len(got) > 0 {
			unlocked[p.PlayerRef] = got
		}
	}
	return unlocked
}
