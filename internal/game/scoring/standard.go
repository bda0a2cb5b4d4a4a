package scoring

// StandardRules 倒数计分规则（301/501/701/custom）
type StandardRules struct {
	mode GameMode
}

// Mode 返回模式
func (r StandardRules) Mode() GameMode {
	return r.mode
}

// InitialScore 起始分
func (r StandardRules) InitialScore(settings Settings) int {
	return StartingScore(r.mode, settings)
}

// Evaluate 计算一轮倒数计分
//
// 剩余分 = 当前分 - 有效总分。double-in 未开局时，第一支双倍镖之前的镖不计分。
// 以下情况爆镖：剩余分为负；double-out 下剩余 1 分；double-out 下归零但结束镖不是双倍或内牛眼。
// 结束镖指本轮最后一支计分的镖。
func (r StandardRules) Evaluate(ctx TurnContext) Outcome {
	player := ctx.Player
	out := Outcome{
		NewScore:    player.Score,
		FinishType:  FinishNone,
		Opened:      player.Opened,
		WinningDart: -1,
	}

	opened := player.Opened || !ctx.Settings.DoubleIn
	effective := 0
	last := -1
	for i, d := range ctx.Darts {
		if !opened {
			if !d.IsDouble() {
				continue
			}
			opened = true
		}
		if d.IsMiss() {
			continue
		}
		effective += d.Points()
		last = i
	}

	out.Scored = effective
	remaining := player.Score - effective
	doubleOut := ctx.Settings.DoubleOut

	switch {
	case remaining < 0, remaining == 1 && doubleOut:
		out.IsBust = true
		return out
	case remaining == 0 && last < 0:
		// 没有计分镖，分数不变
	case remaining == 0:
		finisher := ctx.Darts[last]
		if doubleOut && !finisher.IsDouble() {
			out.IsBust = true
			return out
		}
		out.NewScore = 0
		out.IsWin = true
		out.FinishType = finishTypeOf(finisher)
		out.WinningDart = last
	default:
		out.NewScore = remaining
	}

	if ctx.Settings.DoubleIn {
		out.Opened = opened
	}
	return out
}
