package scoring

import "strconv"

// CricketBull 米字牛眼分区键
const CricketBull = "BULL"

// MarksToClose 关闭一个分区所需标记数
const MarksToClose = 3

// CricketSegments 米字计分分区
var CricketSegments = []string{"15", "16", "17", "18", "19", "20", CricketBull}

// CricketRules 米字规则
//
// 每镖按倍数记标记（内牛眼记2），三个标记关闭分区。
// 关闭后的多余标记仅在至少一名对手未关闭该分区时按分区值得分。
// 获胜条件：关闭全部分区且得分不低于任何对手。
type CricketRules struct{}

// Mode 返回模式
func (CricketRules) Mode() GameMode {
	return ModeCricket
}

// InitialScore 米字从0分开始
func (CricketRules) InitialScore(Settings) int {
	return 0
}

// Evaluate 计算一轮米字计分
func (r CricketRules) Evaluate(ctx TurnContext) Outcome {
	marks := NewCricketMarks()
	for k, v := range ctx.Player.Marks {
		marks[k] = v
	}

	score := ctx.Player.Score
	// 最后一支加标记或得分的镖
	last := -1
	for i, d := range ctx.Darts {
		key, ok := cricketKey(d)
		if !ok {
			continue
		}
		for hit := 0; hit < d.Multiplier; hit++ {
			if marks[key] < MarksToClose {
				marks[key]++
				last = i
				continue
			}
			if anyOpen(ctx.Opponents, key) {
				score += segmentValue(key)
				last = i
			}
		}
	}

	out := Outcome{
		NewScore:    score,
		Scored:      TotalOf(ctx.Darts),
		Marks:       marks,
		Opened:      ctx.Player.Opened,
		FinishType:  FinishNone,
		WinningDart: -1,
	}
	if allClosed(marks) && leads(score, ctx.Opponents) {
		out.IsWin = true
		out.WinningDart = last
		if out.WinningDart >= 0 {
			out.FinishType = finishTypeOf(ctx.Darts[out.WinningDart])
		}
	}
	return out
}

// NewCricketMarks 初始化米字标记
func NewCricketMarks() map[string]int {
	marks := make(map[string]int, len(CricketSegments))
	for _, seg := range CricketSegments {
		marks[seg] = 0
	}
	return marks
}

func cricketKey(d Dart) (string, bool) {
	switch {
	case d.Value == BullValue:
		return CricketBull, true
	case d.Value >= 15 && d.Value <= MaxSegment:
		return strconv.Itoa(d.Value), true
	default:
		return "", false
	}
}

func segmentValue(key string) int {
	if key == CricketBull {
		return BullValue
	}
	v, _ := strconv.Atoi(key)
	return v
}

func anyOpen(opponents []PlayerView, key string) bool {
	for _, o := range opponents {
		if o.Marks[key] < MarksToClose {
			return true
		}
	}
	return false
}

func allClosed(marks map[string]int) bool {
	for _, seg := range CricketSegments {
		if marks[seg] < MarksToClose {
			return false
		}
	}
	return true
}

func leads(score int, opponents []PlayerView) bool {
	for _, o := range opponents {
		if o.Score > score {
			return false
		}
	}
	return true
}
