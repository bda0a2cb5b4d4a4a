// Package stats 将单场比赛数据累计到选手的生涯统计
package stats

import (
	"time"

	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/game/scoring"
)

// ModeStats 分模式统计
type ModeStats struct {
	Played int `json:"played"`
	Won    int `json:"won"`
}

// Achievement 已解锁成就
type Achievement struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// PlayerStats 选手生涯统计
type PlayerStats struct {
	GamesPlayed        int                  `json:"gamesPlayed"`
	GamesWon           int                  `json:"gamesWon"`
	TotalScore         int64                `json:"totalScore"`
	TotalDarts         int64                `json:"totalDarts"`
	LegsPlayed         int                  `json:"legsPlayed"`
	LegsWon            int                  `json:"legsWon"`
	AverageScore       float64              `json:"averageScore"`       // 三镖平均
	AverageDartsPerLeg float64              `json:"averageDartsPerLeg"` // 每局平均镖数
	HighestScore       int                  `json:"highestScore"`
	BestCheckout       int                  `json:"bestCheckout"`
	Total180s          int                  `json:"total180s"`
	BestClockDarts     int                  `json:"bestClockDarts,omitempty"`
	GameModeStats      map[string]ModeStats `json:"gameModeStats"`
	Achievements       []Achievement        `json:"achievements"`
}

// HasAchievement 是否已解锁
func (ps *PlayerStats) HasAchievement(name string) bool {
	for _, a := range ps.Achievements {
		if a.Name == name {
			return true
		}
	}
	return false
}

// SessionStats 单场统计视图
type SessionStats struct {
	Average      float64 `json:"average"`
	HighestScore int     `json:"highestScore"`
	OneEighties  int     `json:"oneEighties"`
	CheckoutRate float64 `json:"checkoutRate"`
	LegsPlayed   int     `json:"legsPlayed"`
	LegsWon      int     `json:"legsWon"`
	BestCheckout int     `json:"bestCheckout"`
}

// Session 由单场数据计算统计视图，局数取整场比赛的局数
func Session(g *game.Game, p *game.PlayerGameData) SessionStats {
	mode := g.GameMode
	won, best := 0, 0
	for _, t := range p.Throws {
		if t.IsCheckout {
			won++
			if mode.IsCountdown() && t.ScoreBefore > best {
				best = t.ScoreBefore
			}
		}
	}
	return SessionStats{
		Average:      game.RecomputeAverage(p.Throws),
		HighestScore: p.HighestScore,
		OneEighties:  p.ScoreMilestones.OneEighty,
		CheckoutRate: scoring.RoundedRatio(p.Checkouts, p.CheckoutAttempts),
		LegsPlayed:   g.LegsPlayed(),
		LegsWon:      won,
		BestCheckout: best,
	}
}
