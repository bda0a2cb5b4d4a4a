package models

import (
	"time"

	"github.com/wfunc/darts-engine/internal/game"
)

// GameRecord 比赛记录表，快照保存完整的比赛聚合
type GameRecord struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	OwnerID    uint       `gorm:"not null;index" json:"owner_id"`
	GameMode   string     `gorm:"size:20;not null;index" json:"game_mode"`
	Status     string     `gorm:"size:20;not null;index" json:"status"` // waiting, active, paused, finished, abandoned
	Version    int        `gorm:"not null;default:1" json:"version"`
	WinnerRef  *uint      `gorm:"index" json:"winner_ref,omitempty"`
	Snapshot   *game.Game `gorm:"serializer:jsoniter;type:text" json:"snapshot"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ActivityAt time.Time  `gorm:"index" json:"activity_at"` // 最后一次状态变更
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (GameRecord) TableName() string {
	return "game_records"
}

// NewGameRecord 由比赛创建记录
func NewGameRecord(ownerID uint, g *game.Game) *GameRecord {
	r := &GameRecord{OwnerID: ownerID, Version: 1}
	r.SetGame(g)
	return r
}

// SetGame 用比赛刷新索引列和快照
func (r *GameRecord) SetGame(g *game.Game) {
	r.ID = g.ID
	r.GameMode = string(g.GameMode)
	r.Status = string(g.Status)
	r.WinnerRef = g.WinnerRef
	r.Snapshot = g
	r.StartedAt = g.StartedAt
	r.FinishedAt = g.FinishedAt
	r.ActivityAt = g.UpdatedAt
}

// Game 返回快照
func (r *GameRecord) Game() *game.Game {
	return r.Snapshot
}
