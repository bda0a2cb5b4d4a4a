package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/middleware"
	"github.com/wfunc/darts-engine/internal/models"
	"github.com/wfunc/darts-engine/internal/service"
)

// BoardControl 镖盘控制
type BoardControl interface {
	Bind(gameID string)
	GameID() string
	Pending() int
}

// BoardLogQuerier 镖盘日志查询
type BoardLogQuerier interface {
	Query(ctx context.Context, query *models.BoardLogQuery) ([]*models.BoardLog, int64, error)
}

// BoardHandler 电子镖盘处理器
type BoardHandler struct {
	board   BoardControl
	logs    BoardLogQuerier
	matches service.MatchService
}

// NewBoardHandler 创建镖盘处理器，board 为空表示未启用镖盘
func NewBoardHandler(board BoardControl, logs BoardLogQuerier, matches service.MatchService) *BoardHandler {
	return &BoardHandler{board: board, logs: logs, matches: matches}
}

// BindRequest 绑定请求
type BindRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

// BoardStatus 镖盘状态
type BoardStatus struct {
	Enabled bool   `json:"enabled"`
	GameID  string `json:"game_id,omitempty"`
	Pending int    `json:"pending"`
}

// Status 镖盘状态
// @Summary 镖盘状态
// @Tags Board
// @Produce json
// @Success 200 {object} BoardStatus
// @Router /api/v1/board [get]
func (h *BoardHandler) Status(c *gin.Context) {
	if h.board == nil {
		c.JSON(http.StatusOK, BoardStatus{})
		return
	}
	c.JSON(http.StatusOK, BoardStatus{
		Enabled: true,
		GameID:  h.board.GameID(),
		Pending: h.board.Pending(),
	})
}

// Bind 把镖盘绑定到比赛
// @Summary 绑定比赛
// @Tags Board
// @Accept json
// @Produce json
// @Param request body BindRequest true "比赛ID"
// @Success 200 {object} BoardStatus
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/board/bind [post]
func (h *BoardHandler) Bind(c *gin.Context) {
	if h.board == nil {
		respondError(c, apperrors.New(apperrors.ErrInvalidState, "镖盘未启用"))
		return
	}
	var req BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	callerID, _ := middleware.GetCallerID(c)
	if err := h.matches.Authorize(c.Request.Context(), callerID, req.GameID); err != nil {
		respondError(c, err)
		return
	}

	h.board.Bind(req.GameID)
	c.JSON(http.StatusOK, BoardStatus{Enabled: true, GameID: req.GameID, Pending: h.board.Pending()})
}

// Logs 查询镖盘原始输入
// @Summary 镖盘日志
// @Tags Board
// @Produce json
// @Param game_id query string false "比赛ID，缺省取镖盘当前绑定的比赛"
// @Param level query string false "INFO/WARN/ERROR"
// @Success 200 {object} PageResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/board/logs [get]
func (h *BoardHandler) Logs(c *gin.Context) {
	gameID := c.Query("game_id")
	if gameID == "" && h.board != nil {
		gameID = h.board.GameID()
	}
	if gameID == "" {
		respondError(c, apperrors.New(apperrors.ErrInvalidParam, "缺少比赛ID"))
		return
	}
	// 只能查看自己的比赛
	callerID, _ := middleware.GetCallerID(c)
	if err := h.matches.Authorize(c.Request.Context(), callerID, gameID); err != nil {
		respondError(c, err)
		return
	}

	query := &models.BoardLogQuery{
		GameID: gameID,
		Level:  models.BoardLogLevel(c.Query("level")),
	}
	if startTime := c.Query("start_time"); startTime != "" {
		if t, err := time.Parse(time.RFC3339, startTime); err == nil {
			query.StartTime = &t
		}
	}
	if endTime := c.Query("end_time"); endTime != "" {
		if t, err := time.Parse(time.RFC3339, endTime); err == nil {
			query.EndTime = &t
		}
	}
	query.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	query.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, total, err := h.logs.Query(c.Request.Context(), query)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.ErrDatabaseQuery))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   logs,
		"total":  total,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}
