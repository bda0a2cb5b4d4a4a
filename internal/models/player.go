package models

import (
	"github.com/wfunc/darts-engine/internal/game/stats"
)

// Player 选手及其生涯统计
type Player struct {
	BaseModel
	OwnerID            uint                       `gorm:"not null;index" json:"owner_id"`
	Name               string                     `gorm:"size:100;not null" json:"name"`
	Status             string                     `gorm:"size:20;default:'active'" json:"status"` // active, retired
	GamesPlayed        int                        `gorm:"default:0" json:"games_played"`
	GamesWon           int                        `gorm:"default:0" json:"games_won"`
	TotalScore         int64                      `gorm:"default:0" json:"total_score"`
	TotalDarts         int64                      `gorm:"default:0" json:"total_darts"`
	LegsPlayed         int                        `gorm:"default:0" json:"legs_played"`
	LegsWon            int                        `gorm:"default:0" json:"legs_won"`
	AverageScore       float64                    `gorm:"default:0" json:"average_score"`
	AverageDartsPerLeg float64                    `gorm:"default:0" json:"average_darts_per_leg"`
	HighestScore       int                        `gorm:"default:0" json:"highest_score"`
	BestCheckout       int                        `gorm:"default:0" json:"best_checkout"`
	Total180s          int                        `gorm:"column:total_180s;default:0" json:"total_180s"`
	BestClockDarts     int                        `gorm:"default:0;index" json:"best_clock_darts"`
	GameModeStats      map[string]stats.ModeStats `gorm:"serializer:jsoniter;type:text" json:"game_mode_stats"`
	Achievements       []stats.Achievement        `gorm:"serializer:jsoniter;type:text" json:"achievements"`
}

// TableName 指定表名
func (Player) TableName() string {
	return "players"
}

// Stats 转换为统计结构
func (p *Player) Stats() *stats.PlayerStats {
	modes := make(map[string]stats.ModeStats, len(p.GameModeStats))
	for k, v := range p.GameModeStats {
		modes[k] = v
	}
	return &stats.PlayerStats{
		GamesPlayed:        p.GamesPlayed,
		GamesWon:           p.GamesWon,
		TotalScore:         p.TotalScore,
		TotalDarts:         p.TotalDarts,
		LegsPlayed:         p.LegsPlayed,
		LegsWon:            p.LegsWon,
		AverageScore:       p.AverageScore,
		AverageDartsPerLeg: p.AverageDartsPerLeg,
		HighestScore:       p.HighestScore,
		BestCheckout:       p.BestCheckout,
		Total180s:          p.Total180s,
		BestClockDarts:     p.BestClockDarts,
		GameModeStats:      modes,
		Achievements:       append([]stats.Achievement(nil), p.Achievements...),
	}
}

// ApplyStats 写回统计结构
func (p *Player) ApplyStats(s *stats.PlayerStats) {
	p.GamesPlayed = s.GamesPlayed
	p.GamesWon = s.GamesWon
	p.TotalScore = s.TotalScore
	p.TotalDarts = s.TotalDarts
	p.LegsPlayed = s.LegsPlayed
	p.LegsWon = s.LegsWon
	p.AverageScore = s.AverageScore
	p.AverageDartsPerLeg = s.AverageDartsPerLeg
	p.HighestScore = s.HighestScore
	p.BestCheckout = s.BestCheckout
	p.Total180s = s.Total180s
	p.BestClockDarts = s.BestClockDarts
	p.GameModeStats = s.GameModeStats
	p.Achievements = s.Achievements
}
