package scoring

import (
	"fmt"
	"time"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
)

// 镖盘取值
const (
	MissValue  = 0
	MaxSegment = 20
	BullValue  = 25

	DartsPerTurn = 3
	MaxTurnScore = 180
)

// FinishType 结束镖类型
type FinishType string

const (
	FinishNone     FinishType = "none"
	FinishSingle   FinishType = "single"
	FinishDouble   FinishType = "double"
	FinishTriple   FinishType = "triple"
	FinishBullseye FinishType = "bullseye"
)

// Dart 单支飞镖的命中结果
type Dart struct {
	Value      int `json:"value"`      // 0=脱靶, 1-20, 25=牛眼
	Multiplier int `json:"multiplier"` // 1, 2, 3
}

// Validate 校验飞镖是否落在合法的镖盘取值内
func (d Dart) Validate() error {
	if d.Value != BullValue && (d.Value < MissValue || d.Value > MaxSegment) {
		return apperrors.Newf(apperrors.ErrInvalidThrow, "分区 %d 超出镖盘范围", d.Value)
	}
	if d.Multiplier < 1 || d.Multiplier > 3 {
		return apperrors.Newf(apperrors.ErrInvalidThrow, "倍数 %d 无效", d.Multiplier)
	}
	if d.Value == BullValue && d.Multiplier == 3 {
		return apperrors.New(apperrors.ErrInvalidThrow, "牛眼没有三倍区")
	}
	if d.Value == MissValue && d.Multiplier != 1 {
		return apperrors.New(apperrors.ErrInvalidThrow, "脱靶只能是单倍")
	}
	return nil
}

// Points 该镖的实际得分
func (d Dart) Points() int {
	return d.Value * d.Multiplier
}

// IsMiss 是否脱靶
func (d Dart) IsMiss() bool {
	return d.Value == MissValue
}

// IsDouble 是否双倍区（内牛眼算双倍）
func (d Dart) IsDouble() bool {
	return d.Value != MissValue && d.Multiplier == 2
}

// IsInnerBull 是否内牛眼
func (d Dart) IsInnerBull() bool {
	return d.Value == BullValue && d.Multiplier == 2
}

// Segment 展示用的分区标签
func (d Dart) Segment() string {
	switch {
	case d.IsMiss():
		return "MISS"
	case d.IsInnerBull():
		return "DB"
	case d.Value == BullValue:
		return "SB"
	}
	prefix := [...]string{"", "S", "D", "T"}[d.Multiplier]
	return fmt.Sprintf("%s%d", prefix, d.Value)
}

// finishTypeOf 根据结束镖推导结束类型
func finishTypeOf(d Dart) FinishType {
	switch {
	case d.IsInnerBull():
		return FinishBullseye
	case d.Multiplier == 2:
		return FinishDouble
	case d.Multiplier == 3:
		return FinishTriple
	case d.IsMiss():
		return FinishNone
	default:
		return FinishSingle
	}
}

// Throw 一轮三镖的记录，写入后不可变
type Throw struct {
	Darts       [DartsPerTurn]Dart `json:"darts"`
	Total       int                `json:"total"` // 计分镖总分，Darts 保留原始三镖
	IsBust      bool               `json:"isBust"`
	IsCheckout  bool               `json:"isCheckout"`
	ScoreBefore int                `json:"scoreBefore"`
	ScoreAfter  int                `json:"scoreAfter"`
	Leg         int                `json:"leg"`
	Set         int                `json:"set"`
	ThrownAt    time.Time          `json:"thrownAt"`
}

// Segments 三镖的分区标签
func (t Throw) Segments() []string {
	labels := make([]string, 0, DartsPerTurn)
	for _, d := range t.Darts {
		labels = append(labels, d.Segment())
	}
	return labels
}

// ParseTurn 校验一轮投掷：必须恰好三镖且每镖合法
func ParseTurn(darts []Dart) ([DartsPerTurn]Dart, error) {
	var turn [DartsPerTurn]Dart
	if len(darts) != DartsPerTurn {
		return turn, apperrors.Newf(apperrors.ErrInvalidThrow, "每轮需要%d镖，收到%d镖", DartsPerTurn, len(darts))
	}
	for i, d := range darts {
		if err := d.Validate(); err != nil {
			return turn, apperrors.Wrapf(err, apperrors.ErrInvalidThrow, "第%d镖", i+1)
		}
		turn[i] = d
	}
	return turn, nil
}

// TotalOf 三镖总分
func TotalOf(darts [DartsPerTurn]Dart) int {
	total := 0
	for _, d := range darts {
		total += d.Points()
	}
	return total
}
