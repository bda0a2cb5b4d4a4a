package hardware

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/game/scoring"
	"github.com/wfunc/darts-engine/internal/logger"
	"github.com/wfunc/darts-engine/internal/models"
)

// ThrowSubmitter 提交一轮投掷
type ThrowSubmitter interface {
	SubmitThrow(ctx context.Context, gameID string, in game.ThrowInput) error
}

// LogStore 原始输入日志存储
type LogStore interface {
	Create(ctx context.Context, log *models.BoardLog) error
}

// Board 电子镖盘，读取上报并提交到当前绑定的比赛
type Board struct {
	port      string
	submitter ThrowSubmitter
	logs      LogStore
	log       *zap.Logger

	mu        sync.Mutex
	gameID    string
	assembler TurnAssembler
}

// NewBoard 创建镖盘，logs 可为空
func NewBoard(port string, submitter ThrowSubmitter, logs LogStore) *Board {
	return &Board{
		port:      port,
		submitter: submitter,
		logs:      logs,
		log:       logger.GetModuleLogger(logger.ModuleBoard),
	}
}

// Bind 绑定比赛，丢弃未提交的镖
func (b *Board) Bind(gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gameID = gameID
	b.assembler.Reset()
	b.log.Info("镖盘绑定比赛", zap.String("port", b.port), zap.String("game_id", gameID))
}

// GameID 当前绑定的比赛
func (b *Board) GameID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gameID
}

// Pending 未提交的镖数
func (b *Board) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.assembler.Pending()
}

// Handle 处理一条上报
func (b *Board) Handle(ctx context.Context, code string) error {
	in, err := ParseCode(code)
	logger.LogBoardInput(b.port, code, err)
	if err != nil {
		b.record(ctx, &models.BoardLog{RawData: code, Level: models.BoardLogLevelWarn, ErrorMsg: err.Error()})
		return err
	}

	b.mu.Lock()
	gameID := b.gameID
	if gameID == "" {
		b.mu.Unlock()
		err := apperrors.New(apperrors.ErrInvalidState, "镖盘未绑定比赛")
		b.record(ctx, &models.BoardLog{RawData: in.Raw, Level: models.BoardLogLevelWarn, ErrorMsg: err.Error()})
		return err
	}
	turn, complete := b.assembler.Push(in)
	b.mu.Unlock()

	entry := &models.BoardLog{GameID: gameID, RawData: in.Raw, Level: models.BoardLogLevelInfo}
	if in.Kind == InputDart {
		entry.Segment = in.Dart.Segment()
		entry.Points = in.Dart.Points()
	}
	b.record(ctx, entry)

	if !complete {
		return nil
	}

	err = b.submitter.SubmitThrow(ctx, gameID, game.NewThrowInput(turn[0], turn[1], turn[2]))
	if err != nil {
		b.log.Warn("镖盘提交失败", zap.String("game_id", gameID), zap.Error(err))
		b.record(ctx, &models.BoardLog{
			GameID:   gameID,
			RawData:  in.Raw,
			Segment:  segments(turn),
			Level:    models.BoardLogLevelError,
			ErrorMsg: err.Error(),
		})
		return err
	}
	return nil
}

func (b *Board) record(ctx context.Context, entry *models.BoardLog) {
	if b.logs == nil {
		return
	}
	entry.Port = b.port
	if err := b.logs.Create(ctx, entry); err != nil {
		b.log.Warn("写入镖盘日志失败", zap.Error(err))
	}
}

func segments(turn [scoring.DartsPerTurn]scoring.Dart) string {
	out := ""
	for i, d := range turn {
		if i > 0 {
			out += ","
		}
		out += d.Segment()
	}
	return out
}

// Consume 逐行读取上报直到 ctx 结束或数据源关闭
func (b *Board) Consume(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)
	var pending []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := br.ReadBytes('\n')
		pending = append(pending, chunk...)
		switch {
		case err == nil:
			line := string(pending)
			pending = pending[:0]
			// 单条错误已记录，继续读取
			_ = b.Handle(ctx, line)
		case stderrors.Is(err, io.ErrNoProgress):
			// 串口读超时返回空数据
			continue
		case stderrors.Is(err, io.EOF):
			if len(pending) > 0 {
				_ = b.Handle(ctx, string(pending))
			}
			return io.EOF
		default:
			return apperrors.Wrap(err, apperrors.ErrBoardRead, b.port)
		}
	}
}

// Opener 打开数据源
type Opener func() (io.ReadCloser, error)

// Run 打开数据源并读取，断开后按间隔重连
func (b *Board) Run(ctx context.Context, open Opener, retry time.Duration) {
	if retry <= 0 {
		retry = 5 * time.Second
	}
	for {
		src, err := open()
		if err != nil {
			b.log.Warn("打开镖盘失败", zap.String("port", b.port), zap.Error(err))
		} else {
			b.log.Info("镖盘已连接", zap.String("port", b.port))
			stop := context.AfterFunc(ctx, func() { src.Close() })
			err = b.Consume(ctx, src)
			stop()
			src.Close()
			if ctx.Err() != nil {
				return
			}
			b.log.Warn("镖盘断开", zap.String("port", b.port), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
