package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wfunc/darts-engine/internal/config"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&config.LogConfig{
		Level:   "info",
		Format:  "json",
		Modules: map[string]string{ModuleBoard: "debug"},
	}, &buf)

	t.Run("比赛事件", func(t *testing.T) {
		buf.Reset()
		LogGameEvent("throw", "game-1", map[string]interface{}{"total": 180})
		out := buf.String()
		assert.Contains(t, out, `"event":"throw"`)
		assert.Contains(t, out, `"game_id":"game-1"`)
		assert.Contains(t, out, `"logger":"game"`)
	})

	t.Run("全局级别过滤", func(t *testing.T) {
		buf.Reset()
		Debug("隐藏")
		assert.Empty(t, buf.String())

		SetLevel("debug")
		defer SetLevel("info")
		Debug("可见")
		assert.Contains(t, buf.String(), "可见")
	})

	t.Run("模块级别", func(t *testing.T) {
		buf.Reset()
		LogBoardInput("/dev/ttyUSB0", "T20", nil)
		assert.Contains(t, buf.String(), `"raw":"T20"`)

		buf.Reset()
		LogBoardInput("/dev/ttyUSB0", "X1", errors.New("无法识别"))
		assert.Contains(t, buf.String(), "board_input_rejected")
	})

	t.Run("数据库操作", func(t *testing.T) {
		buf.Reset()
		LogDatabaseOperation("SELECT 1", 1, time.Millisecond, false, nil)
		assert.Empty(t, buf.String())

		LogDatabaseOperation("SELECT * FROM games", 10, 300*time.Millisecond, true, nil)
		out := buf.String()
		assert.Contains(t, out, "database_slow_query")
		assert.Contains(t, out, `"logger":"database"`)
		assert.Contains(t, out, `"rows":10`)

		buf.Reset()
		LogDatabaseOperation("INSERT INTO games", 0, time.Millisecond, false, errors.New("database is locked"))
		out = buf.String()
		assert.Contains(t, out, "database_operation_failed")
		assert.Contains(t, out, "database is locked")
	})

	t.Run("级别解析", func(t *testing.T) {
		assert.Equal(t, "warn", parseLevel("warn").String())
		assert.Equal(t, "info", parseLevel("verbose").String())
	})
}
