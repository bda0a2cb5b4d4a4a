package scoring

// ClockRules 绕圈规则：按顺序命中 1 到 20，可选以牛眼收尾
type ClockRules struct{}

// Mode 返回模式
func (ClockRules) Mode() GameMode {
	return ModeAroundTheClock
}

// InitialScore 位置从0开始
func (ClockRules) InitialScore(Settings) int {
	return 0
}

// FinalPosition 完成所需位置
func FinalPosition(settings Settings) int {
	if settings.ClockFinishOnBull {
		return MaxSegment + 1
	}
	return MaxSegment
}

// ClockTarget 当前位置需要命中的分区
func ClockTarget(position int) int {
	if position >= MaxSegment {
		return BullValue
	}
	return position + 1
}

// Evaluate 计算一轮绕圈，同一轮可以连续推进
func (ClockRules) Evaluate(ctx TurnContext) Outcome {
	final := FinalPosition(ctx.Settings)
	position := ctx.Player.Score
	out := Outcome{
		Opened:      ctx.Player.Opened,
		Scored:      TotalOf(ctx.Darts),
		FinishType:  FinishNone,
		WinningDart: -1,
	}

	for i, d := range ctx.Darts {
		if position >= final {
			break
		}
		if d.IsMiss() || d.Value != ClockTarget(position) {
			continue
		}
		position++
		if position == final {
			out.IsWin = true
			out.WinningDart = i
			out.FinishType = finishTypeOf(d)
		}
	}

	out.NewScore = position
	return out
}
