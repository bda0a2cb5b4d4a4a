package models

import (
	"time"

	"gorm.io/gorm"
)

// BoardLogLevel 日志级别
type BoardLogLevel string

const (
	BoardLogLevelInfo  BoardLogLevel = "INFO"
	BoardLogLevelWarn  BoardLogLevel = "WARN"
	BoardLogLevelError BoardLogLevel = "ERROR"
)

// BoardLog 电子镖盘原始输入日志
type BoardLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index;not null" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Port    string        `gorm:"type:varchar(100);index" json:"port"`       // 串口名
	GameID  string        `gorm:"type:varchar(36);index" json:"game_id"`     // 所属比赛
	Level   BoardLogLevel `gorm:"type:varchar(10);default:'INFO'" json:"level"`
	RawData string        `gorm:"type:varchar(64)" json:"raw_data"`          // 原始代码，如 T20、NEXT
	Segment string        `gorm:"type:varchar(8)" json:"segment,omitempty"`  // 解析后的分区
	Points  int           `gorm:"default:0" json:"points"`
	ErrorMsg string       `gorm:"type:text" json:"error_msg,omitempty"`

	Timestamp int64 `gorm:"index" json:"timestamp"` // Unix时间戳（毫秒）
}

// TableName 指定表名
func (BoardLog) TableName() string {
	return "board_logs"
}

// BeforeCreate 创建前的钩子
func (l *BoardLog) BeforeCreate(tx *gorm.DB) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if l.Timestamp == 0 {
		l.Timestamp = l.CreatedAt.UnixMilli()
	}
	return nil
}

// BoardLogQuery 查询参数
type BoardLogQuery struct {
	GameID    string        `json:"game_id,omitempty"`
	Level     BoardLogLevel `json:"level,omitempty"`
	StartTime *time.Time    `json:"start_time,omitempty"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Limit     int           `json:"limit,omitempty"`
	Offset    int           `json:"offset,omitempty"`
}
