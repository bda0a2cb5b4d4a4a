package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/game/scoring"
	"github.com/wfunc/darts-engine/internal/game/stats"
	"github.com/wfunc/darts-engine/internal/lock"
	"github.com/wfunc/darts-engine/internal/logger"
	"github.com/wfunc/darts-engine/internal/notify"
	"github.com/wfunc/darts-engine/internal/repository"
)

// MatchOptions 比赛服务选项
type MatchOptions struct {
	DefaultMode      scoring.GameMode
	MaxPlayers       int
	DefaultDoubleOut bool
	LockWait         time.Duration // 等锁上限
	SweepBatch       int
}

// matchService 比赛服务实现
type matchService struct {
	repos      *repository.Manager
	locker     lock.Locker
	publisher  notify.Publisher
	aggregator *stats.Aggregator
	opts       MatchOptions
	now        func() time.Time
	log        *zap.Logger
}

// NewMatchService 创建比赛服务
func NewMatchService(
	repos *repository.Manager,
	locker lock.Locker,
	publisher notify.Publisher,
	aggregator *stats.Aggregator,
	opts MatchOptions,
	log *zap.Logger,
) MatchService {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if aggregator == nil {
		aggregator = stats.NewAggregator()
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = scoring.Mode501
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = 100
	}
	return &matchService{
		repos:      repos,
		locker:     locker,
		publisher:  publisher,
		aggregator: aggregator,
		opts:       opts,
		now:        time.Now,
		log:        log,
	}
}

// CreateGame 创建比赛，选手必须属于调用者
func (s *matchService) CreateGame(ctx context.Context, callerID uint, req *CreateGameRequest) (*GameView, error) {
	if req == nil {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "请求为空")
	}
	if req.GameMode == "" {
		req.GameMode = s.opts.DefaultMode
	}
	if !req.GameMode.Valid() {
		return nil, apperrors.Newf(apperrors.ErrInvalidGameMode, "不支持的模式: %s", req.GameMode)
	}
	if len(req.PlayerIDs) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidPlayers, "至少需要一名选手")
	}
	if s.opts.MaxPlayers > 0 && len(req.PlayerIDs) > s.opts.MaxPlayers {
		return nil, apperrors.Newf(apperrors.ErrInvalidPlayers, "选手最多%d人", s.opts.MaxPlayers)
	}

	refs, err := s.repos.Player().ResolveOwned(ctx, callerID, req.PlayerIDs)
	if err != nil {
		return nil, err
	}

	settings := scoring.Settings{
		StartingScore:     req.StartingScore,
		DoubleIn:          req.DoubleIn,
		DoubleOut:         s.opts.DefaultDoubleOut,
		Legs:              req.Legs,
		Sets:              req.Sets,
		ClockFinishOnBull: req.ClockFinishOnBull,
	}
	if req.DoubleOut != nil {
		settings.DoubleOut = *req.DoubleOut
	}

	g, err := game.NewGame(uuid.NewString(), req.GameMode, settings, refs, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repos.Game().Create(ctx, callerID, g); err != nil {
		return nil, err
	}

	s.log.Info("比赛已创建",
		zap.String("game_id", g.ID),
		zap.String("mode", string(g.GameMode)),
		zap.Uint("owner", callerID),
		zap.Int("players", len(g.Players)),
	)
	logger.LogGameEvent(string(notify.EventCreated), g.ID, map[string]interface{}{"mode": g.GameMode})
	s.publish(ctx, &notify.Event{Type: notify.EventCreated, GameID: g.ID, Version: 1, Game: g})

	return newView(g, 1), nil
}

// Get 获取比赛
func (s *matchService) Get(ctx context.Context, id string) (*GameView, error) {
	g, version, err := s.repos.Game().Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newView(g, version), nil
}

// Authorize 校验比赛归属
func (s *matchService) Authorize(ctx context.Context, callerID uint, id string) error {
	record, err := s.repos.Game().FindRecord(ctx, id)
	if err != nil {
		return err
	}
	if record.OwnerID != callerID {
		return apperrors.Newf(apperrors.ErrPermissionDenied, "比赛 %s 不属于当前用户", id)
	}
	return nil
}

// List 调用者的比赛列表
func (s *matchService) List(ctx context.Context, callerID uint, status string, page, pageSize int) ([]*GameSummary, int64, error) {
	if status != "" && !validStatus(game.Status(status)) {
		return nil, 0, apperrors.Newf(apperrors.ErrInvalidParam, "未知状态: %s", status)
	}
	pagination := repository.NewPagination(page, pageSize)
	records, err := s.repos.Game().ListByOwner(ctx, callerID, status, pagination)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]*GameSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, newSummary(r))
	}
	return summaries, pagination.Total, nil
}

func validStatus(st game.Status) bool {
	switch st {
	case game.StatusWaiting, game.StatusActive, game.StatusPaused, game.StatusFinished, game.StatusAbandoned:
		return true
	default:
		return false
	}
}

// Start 开始比赛
func (s *matchService) Start(ctx context.Context, id string) (*GameView, error) {
	m, err := s.mutate(ctx, id, game.StartCommand{})
	if err != nil {
		return nil, err
	}
	return newView(m.game, m.version), nil
}

// AddThrow 记录当前选手的一轮投掷
func (s *matchService) AddThrow(ctx context.Context, id string, in game.ThrowInput) (*ThrowResponse, error) {
	m, err := s.mutate(ctx, id, game.ThrowCommand{Input: in})
	if err != nil {
		return nil, err
	}
	return &ThrowResponse{
		GameView:     newView(m.game, m.version),
		Turn:         m.turn,
		Achievements: m.unlocked,
	}, nil
}

// Pause 暂停比赛
func (s *matchService) Pause(ctx context.Context, id string) (*GameView, error) {
	m, err := s.mutate(ctx, id, game.PauseCommand{})
	if err != nil {
		return nil, err
	}
	return newView(m.game, m.version), nil
}

// Resume 恢复比赛
func (s *matchService) Resume(ctx context.Context, id string) (*GameView, error) {
	m, err := s.mutate(ctx, id, game.ResumeCommand{})
	if err != nil {
		return nil, err
	}
	return newView(m.game, m.version), nil
}

// Abandon 放弃比赛，不计入生涯统计
func (s *matchService) Abandon(ctx context.Context, id string) (*GameView, error) {
	m, err := s.mutate(ctx, id, game.AbandonCommand{})
	if err != nil {
		return nil, err
	}
	return newView(m.game, m.version), nil
}

// SubmitThrow 镖盘提交一轮投掷
func (s *matchService) SubmitThrow(ctx context.Context, gameID string, in game.ThrowInput) error {
	_, err := s.mutate(ctx, gameID, game.ThrowCommand{Input: in})
	return err
}

// SweepIdle 放弃闲置的比赛
func (s *matchService) SweepIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	if idleFor <= 0 {
		return 0, apperrors.New(apperrors.ErrInvalidParam, "闲置时长必须大于0")
	}
	records, err := s.repos.Game().FindIdle(ctx, s.now().Add(-idleFor), s.opts.SweepBatch)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, r := range records {
		if _, err := s.Abandon(ctx, r.ID); err != nil {
			// 期间状态已变化的比赛跳过
			if apperrors.IsInvalidState(err) || apperrors.IsNotFound(err) {
				continue
			}
			s.log.Warn("放弃闲置比赛失败", zap.String("game_id", r.ID), zap.Error(err))
			continue
		}
		swept++
	}
	return swept, nil
}

// mutation 一次状态变更的结果
type mutation struct {
	game     *game.Game
	version  int
	turn     *game.TurnResult
	unlocked map[uint][]stats.Achievement
}

// mutate 加锁 → 加载 → 执行命令 → 保存 → 发布
func (s *matchService) mutate(ctx context.Context, id string, cmd game.Command) (*mutation, error) {
	lockCtx, cancel := lock.WithTimeout(ctx, s.opts.LockWait)
	unlock, err := s.locker.Lock(lockCtx, id)
	cancel()
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, version, err := s.repos.Game().Load(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := game.Apply(current, cmd, s.now())
	if err != nil {
		return nil, err
	}

	m := &mutation{game: res.Game, turn: res.Turn}
	if res.Game.Status == game.StatusFinished && current.Status != game.StatusFinished {
		err = s.repos.WithTransaction(ctx, func(tx *repository.Manager) error {
			v, err := tx.Game().Save(ctx, res.Game, version)
			if err != nil {
				return err
			}
			m.version = v
			m.unlocked, err = s.foldStats(ctx, tx, res.Game)
			return err
		})
	} else {
		m.version, err = s.repos.Game().Save(ctx, res.Game, version)
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, cmd, m)
	return m, nil
}

// foldStats 比赛结束时累计全部选手的生涯统计
func (s *matchService) foldStats(ctx context.Context, tx *repository.Manager, g *game.Game) (map[uint][]stats.Achievement, error) {
	ids := make([]uint, 0, len(g.Players))
	for _, p := range g.Players {
		ids = append(ids, p.PlayerRef)
	}
	players, err := tx.Player().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	current := make(map[uint]*stats.PlayerStats, len(players))
	for _, p := range players {
		current[p.ID] = p.Stats()
	}
	unlocked := s.aggregator.FoldGame(g, current)

	for _, p := range players {
		p.ApplyStats(current[p.ID])
		if err := tx.Player().SaveStats(ctx, p); err != nil {
			return nil, err
		}
	}
	return unlocked, nil
}

// emit 记录并发布命令产生的事件
func (s *matchService) emit(ctx context.Context, cmd game.Command, m *mutation) {
	var types []notify.EventType
	switch cmd.(type) {
	case game.StartCommand:
		types = append(types, notify.EventStarted)
	case game.ThrowCommand:
		types = append(types, notify.EventThrow)
		if m.game.Status == game.StatusFinished {
			types = append(types, notify.EventFinished)
		}
	case game.PauseCommand:
		types = append(types, notify.EventPaused)
	case game.ResumeCommand:
		types = append(types, notify.EventResumed)
	case game.AbandonCommand:
		types = append(types, notify.EventAbandoned)
	}

	data := map[string]interface{}{
		"command": cmd.Name(),
		"status":  m.game.Status,
		"version": m.version,
	}
	if m.turn != nil {
		data["player"] = m.turn.PlayerRef
		data["total"] = m.turn.Throw.Total
		data["bust"] = m.turn.Throw.IsBust
	}
	logger.LogGameEvent(cmd.Name(), m.game.ID, data)

	for _, t := range types {
		e := &notify.Event{
			Type:    t,
			GameID:  m.game.ID,
			Version: m.version,
			Game:    m.game,
			Turn:    m.turn,
		}
		if t == notify.EventFinished {
			e.Achievements = m.unlocked
		}
		s.publish(ctx, e)
	}
}

// publish 发布失败只记录日志，不影响已提交的状态
func (s *matchService) publish(ctx context.Context, e *notify.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("事件发布失败",
			zap.String("game_id", e.GameID),
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
	}
}
