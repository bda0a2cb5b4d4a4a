package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game/scoring"
)

var baseTime = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

func dart(value, multiplier int) scoring.Dart {
	return scoring.Dart{Value: value, Multiplier: multiplier}
}

var miss = dart(0, 1)

func throwOf(d1, d2, d3 scoring.Dart) ThrowInput {
	return NewThrowInput(d1, d2, d3)
}

func players(n int) []PlayerRef {
	refs := make([]PlayerRef, 0, n)
	for i := 1; i <= n; i++ {
		refs = append(refs, PlayerRef{ID: uint(i), Name: "选手"})
	}
	return refs
}

// startedGame 创建并开始一场比赛
func startedGame(t *testing.T, mode scoring.GameMode, settings scoring.Settings, n int) *Game {
	t.Helper()
	g, err := NewGame("g-1", mode, settings, players(n), baseTime)
	require.NoError(t, err)
	g, err = Start(g, baseTime)
	require.NoError(t, err)
	return g
}

func TestNewGame(t *testing.T) {
	t.Run("创建等待中的比赛", func(t *testing.T) {
		g, err := NewGame("g-1", scoring.Mode501, scoring.Settings{DoubleOut: true}, players(2), baseTime)
		require.NoError(t, err)
		assert.Equal(t, StatusWaiting, g.Status)
		assert.Len(t, g.Players, 2)
		assert.Equal(t, 0, g.CurrentPlayerIndex)
		assert.Nil(t, g.StartedAt)
		assert.Nil(t, g.WinnerRef)
	})

	t.Run("选手列表不能为空", func(t *testing.T) {
		_, err := NewGame("g-1", scoring.Mode501, scoring.Settings{}, nil, baseTime)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidPlayers))
	})

	t.Run("选手不能重复", func(t *testing.T) {
		_, err := NewGame("g-1", scoring.Mode501, scoring.Settings{}, []PlayerRef{{ID: 1}, {ID: 1}}, baseTime)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidPlayers))
	})

	t.Run("未知模式", func(t *testing.T) {
		_, err := NewGame("g-1", "killer", scoring.Settings{}, players(1), baseTime)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidGameMode))
	})
}

func TestStart(t *testing.T) {
	tests := []struct {
		mode     scoring.GameMode
		settings scoring.Settings
		expected int
	}{
		{scoring.Mode301, scoring.Settings{}, 301},
		{scoring.Mode501, scoring.Settings{}, 501},
		{scoring.Mode701, scoring.Settings{}, 701},
		{scoring.ModeCustom, scoring.Settings{}, 501},
		{scoring.ModeCustom, scoring.Settings{StartingScore: 1001}, 1001},
		{scoring.ModeCricket, scoring.Settings{}, 0},
		{scoring.ModeAroundTheClock, scoring.Settings{}, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			g := startedGame(t, tt.mode, tt.settings, 2)
			assert.Equal(t, StatusActive, g.Status)
			require.NotNil(t, g.StartedAt)
			assert.Equal(t, baseTime, *g.StartedAt)
			for _, p := range g.Players {
				assert.Equal(t, tt.expected, p.StartingScore)
				assert.Equal(t, tt.expected, p.CurrentScore)
			}
		})
	}

	t.Run("米字初始化标记", func(t *testing.T) {
		g := startedGame(t, scoring.ModeCricket, scoring.Settings{}, 1)
		assert.Len(t, g.Players[0].CricketMarks, len(scoring.CricketSegments))
	})

	t.Run("重复开始返回状态错误", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{}, 1)
		_, err := Start(g, baseTime)
		assert.True(t, apperrors.IsInvalidState(err))
	})
}

func TestAddThrowScenarios(t *testing.T) {
	t.Run("A: 双倍结束获胜", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{DoubleOut: true}, 1)
		g.Players[0].CurrentScore = 40

		finishedAt := baseTime.Add(95 * time.Second)
		ng, turn, err := AddThrow(g, throwOf(dart(20, 2), miss, miss), finishedAt)
		require.NoError(t, err)

		p := ng.Players[0]
		assert.Equal(t, 40, turn.Throw.Total)
		assert.True(t, turn.Throw.IsCheckout)
		assert.True(t, turn.MatchWon)
		assert.Equal(t, StatusFinished, ng.Status)
		assert.Equal(t, 0, p.CurrentScore)
		assert.Equal(t, scoring.FinishDouble, p.FinishType)
		assert.Equal(t, 1, p.Checkouts)
		assert.Equal(t, 1, p.CheckoutAttempts)
		require.NotNil(t, ng.WinnerRef)
		assert.Equal(t, uint(1), *ng.WinnerRef)
		require.NotNil(t, ng.FinishedAt)
		assert.Equal(t, finishedAt, *ng.FinishedAt)
		require.NotNil(t, ng.DurationSeconds)
		assert.Equal(t, int64(95), *ng.DurationSeconds)
	})

	t.Run("B: 超出剩余分爆镖", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{}, 1)
		g.Players[0].CurrentScore = 20

		ng, turn, err := AddThrow(g, throwOf(dart(25, 1), miss, miss), baseTime)
		require.NoError(t, err)
		assert.True(t, turn.Throw.IsBust)
		assert.Equal(t, 20, ng.Players[0].CurrentScore)
		assert.Equal(t, 3, ng.Players[0].DartsThrown)
		assert.Len(t, ng.Players[0].Throws, 1)
		assert.Equal(t, StatusActive, ng.Status)
	})

	t.Run("C: double-out剩1分无法完成", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{DoubleOut: true}, 1)
		g.Players[0].CurrentScore = 1

		for _, in := range []ThrowInput{
			throwOf(dart(1, 1), miss, miss),
			throwOf(dart(1, 2), miss, miss),
			throwOf(miss, miss, dart(1, 1)),
		} {
			var turn *TurnResult
			var err error
			g, turn, err = AddThrow(g, in, baseTime)
			require.NoError(t, err)
			assert.True(t, turn.Throw.IsBust)
			assert.Equal(t, 1, g.Players[0].CurrentScore)
			assert.Equal(t, StatusActive, g.Status)
			assert.Nil(t, g.WinnerRef)
		}
		assert.Equal(t, 0, g.Players[0].CheckoutAttempts)
	})

	t.Run("D: 连续三个180", func(t *testing.T) {
		g := startedGame(t, scoring.Mode701, scoring.Settings{}, 1)
		t180 := throwOf(dart(20, 3), dart(20, 3), dart(20, 3))
		for i := 0; i < 3; i++ {
			var err error
			g, _, err = AddThrow(g, t180, baseTime)
			require.NoError(t, err)
		}
		p := g.Players[0]
		assert.Equal(t, 3, p.ScoreMilestones.OneEighty)
		assert.Equal(t, 0, p.ScoreMilestones.OneFourty)
		assert.Equal(t, 180, p.HighestScore)
		assert.Equal(t, 161, p.CurrentScore)
		assert.Equal(t, 180.0, p.Average)
		assert.Equal(t, 9, p.DartsThrown)
	})

	t.Run("E: 放弃比赛无胜者", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{}, 2)
		ng, err := Abandon(g, baseTime.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, StatusAbandoned, ng.Status)
		require.NotNil(t, ng.FinishedAt)
		assert.Nil(t, ng.WinnerRef)
		require.NotNil(t, ng.DurationSeconds)
		assert.Equal(t, int64(60), *ng.DurationSeconds)
	})
}

func TestAddThrowBustProperty(t *testing.T) {
	for _, score := range []int{2, 20, 59, 100, 170} {
		g := startedGame(t, scoring.Mode501, scoring.Settings{}, 2)
		g.Players[0].CurrentScore = score
		in := throwOf(dart(20, 3), dart(20, 3), dart(20, 3))

		ng, turn, err := AddThrow(g, in, baseTime)
		require.NoError(t, err)
		assert.True(t, turn.Throw.IsBust)
		assert.Equal(t, score, ng.Players[0].CurrentScore)
		assert.Equal(t, 3, ng.Players[0].DartsThrown)
		assert.Equal(t, 1, ng.CurrentPlayerIndex)
	}
}

func TestAddThrowDoubleOutProperty(t *testing.T) {
	inputs := []ThrowInput{
		throwOf(dart(20, 1), dart(20, 1), miss),
		throwOf(dart(20, 2), dart(20, 1), miss),
		throwOf(dart(10, 2), dart(20, 3), miss),
		throwOf(dart(25, 1), dart(15, 1), miss),
	}
	for _, in := range inputs {
		darts, err := in.Darts()
		require.NoError(t, err)

		g := startedGame(t, scoring.Mode501, scoring.Settings{DoubleOut: true}, 1)
		g.Players[0].CurrentScore = scoring.TotalOf(darts)

		ng, turn, err := AddThrow(g, in, baseTime)
		require.NoError(t, err)
		assert.True(t, turn.Throw.IsBust)
		assert.False(t, turn.LegWon)
		assert.Equal(t, StatusActive, ng.Status)
	}
}

func TestAddThrowAverage(t *testing.T) {
	g := startedGame(t, scoring.Mode501, scoring.Settings{}, 1)
	inputs := []ThrowInput{
		throwOf(dart(20, 1), dart(20, 1), dart(20, 1)),
		throwOf(dart(19, 3), dart(1, 1), miss),
		throwOf(dart(5, 1), dart(5, 1), dart(1, 1)),
	}
	for _, in := range inputs {
		var err error
		g, _, err = AddThrow(g, in, baseTime)
		require.NoError(t, err)
	}
	p := g.Players[0]
	// (60 + 58 + 11) / 3 = 43
	assert.Equal(t, 43.0, p.Average)
	assert.Equal(t, RecomputeAverage(p.Throws), p.Average)

	g, _, err := AddThrow(g, throwOf(dart(1, 1), miss, miss), baseTime)
	require.NoError(t, err)
	// 130 / 4 = 32.5
	assert.Equal(t, 32.5, g.Players[0].Average)
}

func TestAddThrowMilestones(t *testing.T) {
	g := startedGame(t, scoring.Mode701, scoring.Settings{}, 1)
	inputs := []ThrowInput{
		throwOf(dart(20, 3), dart(20, 3), dart(20, 1)), // 140
		throwOf(dart(20, 3), dart(20, 2), miss),        // 100
		throwOf(dart(25, 2), dart(25, 2), miss),        // 100，两个内牛眼
		throwOf(dart(20, 3), dart(19, 1), miss),        // 79
	}
	for _, in := range inputs {
		var err error
		g, _, err = AddThrow(g, in, baseTime)
		require.NoError(t, err)
	}
	m := g.Players[0].ScoreMilestones
	assert.Equal(t, 0, m.OneEighty)
	assert.Equal(t, 1, m.OneFourty)
	assert.Equal(t, 2, m.Hundred)
	assert.Equal(t, 2, m.Bullseye)
	assert.Equal(t, 140, g.Players[0].HighestScore)
}

func TestAddThrowRejectsWithoutMutation(t *testing.T) {
	g := startedGame(t, scoring.Mode501, scoring.Settings{}, 2)
	snapshot := g.Clone()

	t.Run("三倍牛眼", func(t *testing.T) {
		_, _, err := AddThrow(g, throwOf(dart(25, 3), miss, miss), baseTime)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("缺少一镖", func(t *testing.T) {
		d := dart(20, 1)
		_, _, err := AddThrow(g, ThrowInput{Dart1: &d, Dart2: &d}, baseTime)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("分区越界", func(t *testing.T) {
		_, _, err := AddThrow(g, throwOf(dart(21, 1), miss, miss), baseTime)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidThrow))
	})

	assert.Equal(t, snapshot, g)
}

func TestAddThrowInvalidState(t *testing.T) {
	in := throwOf(dart(20, 1), miss, miss)

	waiting, err := NewGame("g-1", scoring.Mode501, scoring.Settings{}, players(1), baseTime)
	require.NoError(t, err)
	_, _, err = AddThrow(waiting, in, baseTime)
	assert.True(t, apperrors.IsInvalidState(err))

	paused, err := Pause(startedGame(t, scoring.Mode501, scoring.Settings{}, 1), baseTime)
	require.NoError(t, err)
	_, _, err = AddThrow(paused, in, baseTime)
	assert.True(t, apperrors.IsInvalidState(err))

	abandoned, err := Abandon(paused, baseTime)
	require.NoError(t, err)
	_, _, err = AddThrow(abandoned, in, baseTime)
	assert.True(t, apperrors.IsInvalidState(err))
	assert.Empty(t, abandoned.Players[0].Throws)
}

func TestNextPlayer(t *testing.T) {
	t.Run("轮转闭合", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{}, 3)
		g.CurrentPlayerIndex = 1
		for i := 0; i < len(g.Players); i++ {
			var err error
			g, err = NextPlayer(g)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, g.CurrentPlayerIndex)
	})

	t.Run("投掷后轮到下一名选手", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{}, 2)
		g, _, err := AddThrow(g, throwOf(dart(20, 1), miss, miss), baseTime)
		require.NoError(t, err)
		assert.Equal(t, 1, g.CurrentPlayerIndex)
		g, _, err = AddThrow(g, throwOf(dart(20, 1), miss, miss), baseTime)
		require.NoError(t, err)
		assert.Equal(t, 0, g.CurrentPlayerIndex)
	})

	t.Run("结束后不再推进", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{}, 2)
		g.Players[0].CurrentScore = 20
		g, _, err := AddThrow(g, throwOf(dart(20, 1), miss, miss), baseTime)
		require.NoError(t, err)
		require.Equal(t, StatusFinished, g.Status)
		assert.Equal(t, 0, g.CurrentPlayerIndex)

		g, err = NextPlayer(g)
		require.NoError(t, err)
		assert.Equal(t, 0, g.CurrentPlayerIndex)
	})

	t.Run("下标越界报错", func(t *testing.T) {
		g := startedGame(t, scoring.Mode501, scoring.Settings{}, 2)
		g.CurrentPlayerIndex = 5
		_, err := NextPlayer(g)
		assert.True(t, apperrors.Is(err, apperrors.ErrDataIntegrity))
		_, _, err = AddThrow(g, throwOf(miss, miss, miss), baseTime)
		assert.Error(t, err)
	})
}

func TestPauseResume(t *testing.T) {
	g := startedGame(t, scoring.Mode501, scoring.Settings{}, 1)

	paused, err := Pause(g, baseTime)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, paused.Status)
	assert.Equal(t, StatusActive, g.Status)

	_, err = Pause(paused, baseTime)
	assert.True(t, apperrors.IsInvalidState(err))

	resumed, err := Resume(paused, baseTime)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, resumed.Status)

	_, err = Resume(resumed, baseTime)
	assert.True(t, apperrors.IsInvalidState(err))

	waiting, err := NewGame("g-2", scoring.Mode501, scoring.Settings{}, players(1), baseTime)
	require.NoError(t, err)
	_, err = Abandon(waiting, baseTime)
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestLegsAndSets(t *testing.T) {
	g := startedGame(t, scoring.Mode301, scoring.Settings{Legs: 2, Sets: 1}, 2)
	g.Players[0].CurrentScore = 20

	g, turn, err := AddThrow(g, throwOf(dart(20, 1), miss, miss), baseTime)
	require.NoError(t, err)
	assert.True(t, turn.LegWon)
	assert.False(t, turn.MatchWon)
	assert.Equal(t, StatusActive, g.Status)
	assert.Equal(t, 2, g.CurrentLeg)
	assert.Equal(t, 1, g.Players[0].LegsWon)
	// 新一局：分数重置，先手轮换
	assert.Equal(t, 301, g.Players[0].CurrentScore)
	assert.Equal(t, 1, g.LegStarterIndex)
	assert.Equal(t, 1, g.CurrentPlayerIndex)

	g, _, err = AddThrow(g, throwOf(dart(1, 1), miss, miss), baseTime)
	require.NoError(t, err)
	g.Players[0].CurrentScore = 40
	g, turn, err = AddThrow(g, throwOf(dart(20, 2), miss, miss), baseTime)
	require.NoError(t, err)
	assert.True(t, turn.SetWon)
	assert.True(t, turn.MatchWon)
	assert.Equal(t, StatusFinished, g.Status)
	assert.Equal(t, 1, g.Players[0].SetsWon)
	assert.Equal(t, 2, g.Players[0].Checkouts)
	require.NotNil(t, g.WinnerRef)
	assert.Equal(t, uint(1), *g.WinnerRef)

	legs := map[int]bool{}
	for _, th := range g.Players[0].Throws {
		legs[th.Leg] = true
	}
	assert.Len(t, legs, 2)
}

func TestSetsResetLegs(t *testing.T) {
	g := startedGame(t, scoring.Mode301, scoring.Settings{Legs: 1, Sets: 2}, 2)
	g.Players[0].CurrentScore = 20

	g, turn, err := AddThrow(g, throwOf(dart(20, 1), miss, miss), baseTime)
	require.NoError(t, err)
	assert.True(t, turn.SetWon)
	assert.False(t, turn.MatchWon)
	assert.Equal(t, 2, g.CurrentSet)
	assert.Equal(t, 1, g.CurrentLeg)
	assert.Equal(t, 0, g.Players[0].LegsWon)
	assert.Equal(t, 1, g.Players[0].SetsWon)
}

func TestDoubleInGame(t *testing.T) {
	g := startedGame(t, scoring.Mode501, scoring.Settings{DoubleIn: true, DoubleOut: true}, 1)
	g, turn, err := AddThrow(g, throwOf(dart(20, 3), dart(20, 3), dart(20, 3)), baseTime)
	require.NoError(t, err)
	p := g.Players[0]
	assert.Equal(t, 501, p.CurrentScore)
	assert.False(t, p.Opened)

	t.Run("未开局的镖不计入统计", func(t *testing.T) {
		assert.Equal(t, 0, turn.Throw.Total)
		assert.Equal(t, dart(20, 3), turn.Throw.Darts[0])
		assert.Equal(t, ScoreMilestones{}, p.ScoreMilestones)
		assert.Equal(t, 0, p.HighestScore)
		assert.Equal(t, 0.0, p.Average)
		assert.Equal(t, 3, p.DartsThrown)
	})

	g, turn, err = AddThrow(g, throwOf(dart(20, 3), dart(20, 2), dart(20, 3)), baseTime)
	require.NoError(t, err)
	p = g.Players[0]
	assert.Equal(t, 401, p.CurrentScore)
	assert.True(t, p.Opened)

	t.Run("开局镖及之后计分", func(t *testing.T) {
		assert.Equal(t, 100, turn.Throw.Total)
		assert.Equal(t, 1, p.ScoreMilestones.Hundred)
		assert.Equal(t, 0, p.ScoreMilestones.OneEighty)
		assert.Equal(t, 100, p.HighestScore)
		assert.Equal(t, 50.0, p.Average)
	})
}

func TestCricketGame(t *testing.T) {
	g := startedGame(t, scoring.ModeCricket, scoring.Settings{}, 2)
	closeAll := []ThrowInput{
		throwOf(dart(20, 3), dart(19, 3), dart(18, 3)),
		throwOf(dart(17, 3), dart(16, 3), dart(15, 3)),
	}
	pass := throwOf(miss, miss, miss)

	g, _, err := AddThrow(g, closeAll[0], baseTime)
	require.NoError(t, err)
	g, _, err = AddThrow(g, pass, baseTime)
	require.NoError(t, err)
	g, _, err = AddThrow(g, closeAll[1], baseTime)
	require.NoError(t, err)
	g, _, err = AddThrow(g, pass, baseTime)
	require.NoError(t, err)

	assert.Equal(t, 3, g.Players[0].CricketMarks["15"])
	assert.Equal(t, 0, g.Players[0].CricketMarks[scoring.CricketBull])

	g, turn, err := AddThrow(g, throwOf(dart(25, 2), dart(25, 1), miss), baseTime)
	require.NoError(t, err)
	assert.True(t, turn.MatchWon)
	assert.Equal(t, StatusFinished, g.Status)
	assert.Equal(t, scoring.FinishSingle, g.Players[0].FinishType)
	assert.Equal(t, 0, g.Players[0].Checkouts)
}

func TestAroundTheClockGame(t *testing.T) {
	g := startedGame(t, scoring.ModeAroundTheClock, scoring.Settings{}, 1)
	g.Players[0].CurrentScore = 17

	g, _, err := AddThrow(g, throwOf(dart(18, 1), miss, dart(19, 1)), baseTime)
	require.NoError(t, err)
	assert.Equal(t, 19, g.Players[0].CurrentScore)

	g, turn, err := AddThrow(g, throwOf(miss, dart(20, 1), miss), baseTime)
	require.NoError(t, err)
	assert.True(t, turn.MatchWon)
	// 前一轮3镖 + 本轮第2镖
	assert.Equal(t, 5, g.Players[0].DartsToFinish)
}

func TestApply(t *testing.T) {
	g, err := NewGame("g-1", scoring.Mode501, scoring.Settings{}, players(2), baseTime)
	require.NoError(t, err)

	res, err := Apply(g, StartCommand{}, baseTime)
	require.NoError(t, err)
	assert.Nil(t, res.Turn)
	g = res.Game

	res, err = Apply(g, ThrowCommand{Input: throwOf(dart(20, 3), miss, miss)}, baseTime)
	require.NoError(t, err)
	require.NotNil(t, res.Turn)
	assert.Equal(t, 60, res.Turn.Throw.Total)
	assert.Equal(t, 441, res.Game.Players[0].CurrentScore)

	res, err = Apply(res.Game, NextPlayerCommand{}, baseTime)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Game.CurrentPlayerIndex)

	for _, cmd := range []Command{PauseCommand{}, ResumeCommand{}, AbandonCommand{}} {
		res, err = Apply(res.Game, cmd, baseTime)
		require.NoError(t, err, cmd.Name())
	}
	assert.Equal(t, StatusAbandoned, res.Game.Status)

	_, err = Apply(res.Game, StartCommand{}, baseTime)
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestStateMachineTable(t *testing.T) {
	sm := NewStateMachine()
	assert.True(t, sm.CanFire(StatusWaiting, EventStart))
	assert.False(t, sm.CanFire(StatusWaiting, EventPause))
	assert.False(t, sm.CanFire(StatusFinished, EventResume))
	assert.False(t, sm.CanFire(StatusAbandoned, EventStart))
	assert.Equal(t, []Event{EventAbandon, EventFinish, EventPause}, sm.ValidEvents(StatusActive))
	assert.Empty(t, sm.ValidEvents(StatusFinished))
}
