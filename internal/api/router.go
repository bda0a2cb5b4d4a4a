package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/darts-engine/internal/database"
	"github.com/wfunc/darts-engine/internal/middleware"
	"github.com/wfunc/darts-engine/internal/service"
	ws "github.com/wfunc/darts-engine/internal/websocket"
)

// Options 路由依赖
type Options struct {
	DB        *gorm.DB
	Services  *service.Services
	Validator middleware.TokenValidator
	Hub       *ws.Hub
	Board     BoardControl // 未启用镖盘时为空
	BoardLogs BoardLogQuerier
	Mode      string // gin 模式
	Log       *zap.Logger
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	authMiddleware *middleware.AuthMiddleware
	playerHandler  *PlayerHandler
	gameHandler    *GameHandler
	boardHandler   *BoardHandler
	wsHandler      *WebSocketHandler
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(opts Options) *Router {
	switch opts.Mode {
	case "production", gin.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())

	router := &Router{
		engine:         engine,
		db:             opts.DB,
		authMiddleware: middleware.NewAuthMiddleware(opts.Validator),
		playerHandler:  NewPlayerHandler(opts.Services.Player),
		gameHandler:    NewGameHandler(opts.Services.Match),
		boardHandler:   NewBoardHandler(opts.Board, opts.BoardLogs, opts.Services.Match),
		log:            opts.Log,
	}
	if opts.Hub != nil {
		router.wsHandler = NewWebSocketHandler(opts.Hub, opts.Services.Match, opts.Log.Named("ws"))
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// 文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	v1 := r.engine.Group("/api/v1")
	v1.Use(r.authMiddleware.RequireAuth())
	{
		players := v1.Group("/players")
		{
			players.POST("", r.playerHandler.Create)
			players.GET("", r.playerHandler.List)
			players.GET("/:id", r.playerHandler.Get)
		}
		v1.GET("/leaderboard", r.playerHandler.Leaderboard)

		games := v1.Group("/games")
		{
			games.POST("", r.gameHandler.Create)
			games.GET("", r.gameHandler.List)

			owned := games.Group("/:id")
			owned.Use(r.gameHandler.RequireOwner())
			{
				owned.GET("", r.gameHandler.Get)
				owned.POST("/start", r.gameHandler.Start)
				owned.POST("/throws", r.gameHandler.Throw)
				owned.POST("/pause", r.gameHandler.Pause)
				owned.POST("/resume", r.gameHandler.Resume)
				owned.POST("/abandon", r.gameHandler.Abandon)
			}
		}

		board := v1.Group("/board")
		{
			board.GET("", r.boardHandler.Status)
			board.POST("/bind", r.boardHandler.Bind)
			if r.boardHandler.logs != nil {
				board.GET("/logs", r.boardHandler.Logs)
			}
		}

		// 观战推送，浏览器可用 ?token= 传令牌
		if r.wsHandler != nil {
			v1.GET("/ws/games/:id", r.wsHandler.GameWebSocket)
		}
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, r.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Handler 返回 http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
