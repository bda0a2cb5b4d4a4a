package hardware

import (
	"strconv"
	"strings"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game/scoring"
)

// InputKind 镖盘上报类型
type InputKind int

const (
	InputDart InputKind = iota // 一支飞镖
	InputNext                  // 换人按钮
)

// Input 一条镖盘上报
type Input struct {
	Kind InputKind
	Dart scoring.Dart
	Raw  string
}

// ParseCode 解析镖盘文本代码：S20、D16、T19、SB、DB、MISS、NEXT
func ParseCode(code string) (Input, error) {
	raw := strings.ToUpper(strings.TrimSpace(code))
	in := Input{Kind: InputDart, Raw: raw}

	switch raw {
	case "":
		return in, apperrors.New(apperrors.ErrBoardProtocol, "空数据")
	case "NEXT":
		in.Kind = InputNext
		return in, nil
	case "MISS", "M", "0":
		in.Dart = scoring.Dart{Value: scoring.MissValue, Multiplier: 1}
		return in, nil
	case "SB", "BULL":
		in.Dart = scoring.Dart{Value: scoring.BullValue, Multiplier: 1}
		return in, nil
	case "DB", "DBULL":
		in.Dart = scoring.Dart{Value: scoring.BullValue, Multiplier: 2}
		return in, nil
	}

	var multiplier int
	switch raw[0] {
	case 'S':
		multiplier = 1
	case 'D':
		multiplier = 2
	case 'T':
		multiplier = 3
	default:
		return in, apperrors.Newf(apperrors.ErrBoardProtocol, "未知前缀: %s", raw)
	}

	value, err := strconv.Atoi(raw[1:])
	if err != nil || value < 1 || value > scoring.MaxSegment {
		return in, apperrors.Newf(apperrors.ErrBoardProtocol, "无效分区: %s", raw)
	}
	in.Dart = scoring.Dart{Value: value, Multiplier: multiplier}
	return in, nil
}

// TurnAssembler 把逐镖上报拼成一轮三镖
type TurnAssembler struct {
	darts []scoring.Dart
}

// Push 加入一条上报，凑满三镖或按下换人时返回完整一轮，未投的镖记为脱靶
func (a *TurnAssembler) Push(in Input) ([scoring.DartsPerTurn]scoring.Dart, bool) {
	var turn [scoring.DartsPerTurn]scoring.Dart

	if in.Kind == InputDart {
		a.darts = append(a.darts, in.Dart)
		if len(a.darts) < scoring.DartsPerTurn {
			return turn, false
		}
	}

	for i := range turn {
		turn[i] = scoring.Dart{Value: scoring.MissValue, Multiplier: 1}
		if i < len(a.darts) {
			turn[i] = a.darts[i]
		}
	}
	a.Reset()
	return turn, true
}

// Pending 已上报但未提交的镖数
func (a *TurnAssembler) Pending() int {
	return len(a.darts)
}

// Reset 丢弃未提交的镖
func (a *TurnAssembler) Reset() {
	a.darts = a.darts[:0]
}
