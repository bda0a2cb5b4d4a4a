package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/game/scoring"
	"github.com/wfunc/darts-engine/internal/middleware"
	"github.com/wfunc/darts-engine/internal/service"
)

// PlayerHandler 选手处理器
type PlayerHandler struct {
	players service.PlayerService
}

// NewPlayerHandler 创建选手处理器
func NewPlayerHandler(players service.PlayerService) *PlayerHandler {
	return &PlayerHandler{players: players}
}

// CreatePlayerRequest 创建选手请求
type CreatePlayerRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create 创建选手
// @Summary 创建选手
// @Tags Player
// @Accept json
// @Produce json
// @Param request body CreatePlayerRequest true "选手信息"
// @Success 201 {object} models.Player
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/players [post]
func (h *PlayerHandler) Create(c *gin.Context) {
	var req CreatePlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	callerID, _ := middleware.GetCallerID(c)

	player, err := h.players.CreatePlayer(c.Request.Context(), callerID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, player)
}

// Get 选手及生涯统计
// @Summary 获取选手
// @Tags Player
// @Produce json
// @Param id path int true "选手ID"
// @Success 200 {object} models.Player
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/players/{id} [get]
func (h *PlayerHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperrors.Newf(apperrors.ErrInvalidParam, "选手ID无效: %s", c.Param("id")))
		return
	}

	player, err := h.players.GetPlayer(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

// List 当前用户的选手
// @Summary 选手列表
// @Tags Player
// @Produce json
// @Success 200 {object} PageResponse
// @Router /api/v1/players [get]
func (h *PlayerHandler) List(c *gin.Context) {
	callerID, _ := middleware.GetCallerID(c)
	page, pageSize := pageParams(c)

	players, total, err := h.players.ListPlayers(c.Request.Context(), callerID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PageResponse{Items: players, Total: total, Page: page, PageSize: pageSize})
}

// Leaderboard 排行榜
// @Summary 排行榜
// @Tags Player
// @Produce json
// @Param mode query string false "模式，aroundTheClock 按最少镖数排序"
// @Param limit query int false "数量"
// @Success 200 {array} models.Player
// @Router /api/v1/leaderboard [get]
func (h *PlayerHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	mode := scoring.GameMode(c.Query("mode"))

	players, err := h.players.Leaderboard(c.Request.Context(), mode, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, players)
}
