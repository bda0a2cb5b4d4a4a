package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game"
	"github.com/wfunc/darts-engine/internal/game/scoring"
	"github.com/wfunc/darts-engine/internal/hardware"
	"github.com/wfunc/darts-engine/internal/middleware"
	"github.com/wfunc/darts-engine/internal/service"
)

// GameHandler 比赛处理器
type GameHandler struct {
	matches service.MatchService
}

// NewGameHandler 创建比赛处理器
func NewGameHandler(matches service.MatchService) *GameHandler {
	return &GameHandler{matches: matches}
}

// ThrowRequest 投掷请求，可以给出三镖或三个分区代码
type ThrowRequest struct {
	Dart1    *scoring.Dart `json:"dart1"`
	Dart2    *scoring.Dart `json:"dart2"`
	Dart3    *scoring.Dart `json:"dart3"`
	Segments []string      `json:"segments"` // 如 ["T20", "D16", "MISS"]
}

// Input 转换为投掷输入
func (r *ThrowRequest) Input() (game.ThrowInput, error) {
	if len(r.Segments) == 0 {
		return game.ThrowInput{Dart1: r.Dart1, Dart2: r.Dart2, Dart3: r.Dart3}, nil
	}
	if r.Dart1 != nil || r.Dart2 != nil || r.Dart3 != nil {
		return game.ThrowInput{}, apperrors.New(apperrors.ErrInvalidThrow, "dart 与 segments 不能同时使用")
	}
	if len(r.Segments) != scoring.DartsPerTurn {
		return game.ThrowInput{}, apperrors.Newf(apperrors.ErrInvalidThrow, "每轮需要%d镖，收到%d镖", scoring.DartsPerTurn, len(r.Segments))
	}

	var darts [scoring.DartsPerTurn]scoring.Dart
	for i, code := range r.Segments {
		in, err := hardware.ParseCode(code)
		if err != nil {
			return game.ThrowInput{}, apperrors.Wrapf(err, apperrors.ErrInvalidThrow, "第%d镖", i+1)
		}
		if in.Kind != hardware.InputDart {
			return game.ThrowInput{}, apperrors.Newf(apperrors.ErrInvalidThrow, "第%d镖不是飞镖: %s", i+1, code)
		}
		darts[i] = in.Dart
	}
	return game.NewThrowInput(darts[0], darts[1], darts[2]), nil
}

// Create 创建比赛
// @Summary 创建比赛
// @Tags Game
// @Accept json
// @Produce json
// @Param request body service.CreateGameRequest true "比赛设置"
// @Success 201 {object} service.GameView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games [post]
func (h *GameHandler) Create(c *gin.Context) {
	var req service.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	callerID, _ := middleware.GetCallerID(c)

	view, err := h.matches.CreateGame(c.Request.Context(), callerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List 当前用户的比赛
// @Summary 比赛列表
// @Tags Game
// @Produce json
// @Param status query string false "状态过滤"
// @Success 200 {object} PageResponse
// @Router /api/v1/games [get]
func (h *GameHandler) List(c *gin.Context) {
	callerID, _ := middleware.GetCallerID(c)
	page, pageSize := pageParams(c)

	games, total, err := h.matches.List(c.Request.Context(), callerID, c.Query("status"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PageResponse{Items: games, Total: total, Page: page, PageSize: pageSize})
}

// RequireOwner 校验路径中的比赛属于当前用户
func (h *GameHandler) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID, _ := middleware.GetCallerID(c)
		if err := h.matches.Authorize(c.Request.Context(), callerID, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Next()
	}
}

// Get 获取比赛
// @Summary 获取比赛
// @Tags Game
// @Produce json
// @Param id path string true "比赛ID"
// @Success 200 {object} service.GameView
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id} [get]
func (h *GameHandler) Get(c *gin.Context) {
	view, err := h.matches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Throw 记录一轮投掷
// @Summary 投掷
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "比赛ID"
// @Param request body ThrowRequest true "三镖"
// @Success 200 {object} service.ThrowResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/games/{id}/throws [post]
func (h *GameHandler) Throw(c *gin.Context) {
	var req ThrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.matches.AddThrow(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Start 开始比赛
// @Summary 开始比赛
// @Tags Game
// @Produce json
// @Param id path string true "比赛ID"
// @Success 200 {object} service.GameView
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/games/{id}/start [post]
func (h *GameHandler) Start(c *gin.Context) {
	h.transition(c, h.matches.Start)
}

// Pause 暂停比赛
// @Summary 暂停比赛
// @Tags Game
// @Param id path string true "比赛ID"
// @Success 200 {object} service.GameView
// @Router /api/v1/games/{id}/pause [post]
func (h *GameHandler) Pause(c *gin.Context) {
	h.transition(c, h.matches.Pause)
}

// Resume 恢复比赛
// @Summary 恢复比赛
// @Tags Game
// @Param id path string true "比赛ID"
// @Success 200 {object} service.GameView
// @Router /api/v1/games/{id}/resume [post]
func (h *GameHandler) Resume(c *gin.Context) {
	h.transition(c, h.matches.Resume)
}

// Abandon 放弃比赛
// @Summary 放弃比赛
// @Tags Game
// @Param id path string true "比赛ID"
// @Success 200 {object} service.GameView
// @Router /api/v1/games/{id}/abandon [post]
func (h *GameHandler) Abandon(c *gin.Context) {
	h.transition(c, h.matches.Abandon)
}

type transitionFunc func(ctx context.Context, id string) (*service.GameView, error)

func (h *GameHandler) transition(c *gin.Context, fn transitionFunc) {
	view, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
