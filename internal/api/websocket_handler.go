package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wfunc/darts-engine/internal/middleware"
	"github.com/wfunc/darts-engine/internal/service"
	ws "github.com/wfunc/darts-engine/internal/websocket"
)

// WebSocketHandler 观战推送处理器
type WebSocketHandler struct {
	hub     *ws.Hub
	matches service.MatchService
	logger  *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, matches service.MatchService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		matches: matches,
		logger:  logger,
	}
}

// GameWebSocket 订阅比赛，连接后先收到当前快照
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	gameID := c.Param("id")
	view, err := h.matches.Get(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err)
		return
	}
	callerID, _ := middleware.GetCallerID(c)

	if err := h.hub.Serve(c.Writer, c.Request, gameID, callerID, view); err != nil {
		// 升级失败时 upgrader 已写回响应
		h.logger.Warn("WebSocket升级失败",
			zap.String("game_id", gameID),
			zap.Uint("caller_id", callerID),
			zap.Error(err))
		return
	}
	h.logger.Info("WebSocket连接建立",
		zap.String("game_id", gameID),
		zap.Uint("caller_id", callerID))
}
