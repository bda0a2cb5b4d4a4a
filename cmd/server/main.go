package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/wfunc/darts-engine/internal/api"
	"github.com/wfunc/darts-engine/internal/config"
	"github.com/wfunc/darts-engine/internal/database"
	"github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/hardware"
	"github.com/wfunc/darts-engine/internal/lock"
	"github.com/wfunc/darts-engine/internal/logger"
	"github.com/wfunc/darts-engine/internal/notify"
	"github.com/wfunc/darts-engine/internal/repository"
	"github.com/wfunc/darts-engine/internal/service"
	"github.com/wfunc/darts-engine/internal/utils"
	"github.com/wfunc/darts-engine/internal/websocket"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// boardRetry 串口断开后的重连间隔
const boardRetry = 3 * time.Second

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	services *service.Services
	hub      *websocket.Hub
	board    *hardware.Board
	http     *http.Server
	rdb      *redis.Client
	mq       *notify.AMQPPublisher

	// 关闭控制
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动飞镖计分服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}
	s.startServices()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功", zap.String("http", s.cfg.Server.Addr()))
	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	if err := s.initDatabase(); err != nil {
		return err
	}
	repos := repository.NewManager(database.GetDB())

	locker, err := s.initLocker()
	if err != nil {
		return err
	}

	s.hub = websocket.NewHub(websocket.Options{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
		MaxMessageSize:  s.cfg.WebSocket.MaxMessageSize,
		PingInterval:    s.cfg.WebSocket.PingInterval,
		PongTimeout:     s.cfg.WebSocket.PongTimeout,
		WriteTimeout:    s.cfg.WebSocket.WriteTimeout,
	}, logger.GetModuleLogger(logger.ModuleWebSocket))

	publishers := notify.Multi{s.hub}
	if s.cfg.MQ.Enabled {
		s.mq, err = notify.NewAMQPPublisher(s.cfg.MQ.URL, s.cfg.MQ.Exchange)
		if err != nil {
			return err
		}
		publishers = append(publishers, s.mq)
		s.logger.Info("比赛事件发布到 RabbitMQ", zap.String("exchange", s.cfg.MQ.Exchange))
	}

	s.services = service.NewServices(repos, locker, publishers, service.ConfigFrom(s.cfg.Game),
		logger.GetModuleLogger(logger.ModuleGame))

	routerOpts := api.Options{
		DB:        database.GetDB(),
		Services:  s.services,
		Validator: utils.NewJWTManager(s.cfg.Security.JWT.Secret, s.cfg.Security.JWT.Issuer, time.Duration(s.cfg.Security.JWT.ExpireHours)*time.Hour),
		Hub:       s.hub,
		BoardLogs: repos.BoardLog(),
		Mode:      s.cfg.Server.Mode,
		Log:       logger.GetModuleLogger(logger.ModuleHTTP),
	}

	if s.cfg.Board.Enabled {
		var logs hardware.LogStore
		if s.cfg.Board.LogRaw {
			logs = repos.BoardLog()
		}
		s.board = hardware.NewBoard(s.cfg.Board.Port, s.services.Match, logs)
		if s.cfg.Board.GameID != "" {
			s.board.Bind(s.cfg.Board.GameID)
		}
		routerOpts.Board = s.board
	}

	router := api.NewRouter(routerOpts)
	s.http = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}
	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return database.Ping(ctx, database.GetDB())
}

// initLocker 启用 Redis 时使用分布式锁，否则使用进程内锁
func (s *Server) initLocker() (lock.Locker, error) {
	if !s.cfg.Redis.Enabled {
		return lock.NewLocalLocker(), nil
	}

	s.rdb = redis.NewClient(&redis.Options{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseConnect, "连接Redis失败")
	}

	s.logger.Info("比赛锁使用 Redis", zap.String("addr", s.cfg.Redis.Addr))
	return lock.NewRedisLocker(s.rdb, lock.RedisOptions{
		Prefix: s.cfg.Redis.Prefix,
		TTL:    s.cfg.Redis.LockTTL,
	}), nil
}

// startServices 启动服务
func (s *Server) startServices() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.services.Sweeper.Run(s.ctx)
	}()

	if s.board != nil {
		opener := hardware.SerialOpener(hardware.SerialConfig{
			Port:        s.cfg.Board.Port,
			BaudRate:    s.cfg.Board.BaudRate,
			ReadTimeout: s.cfg.Board.ReadTimeout,
		})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.board.Run(s.ctx, opener, boardRetry)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭失败", zap.Error(err))
	}

	// 取消主上下文，触发所有goroutine退出
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	s.closeComponents()
	return nil
}

// closeComponents 关闭组件
func (s *Server) closeComponents() {
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.logger.Error("关闭RabbitMQ失败", zap.Error(err))
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Error("关闭Redis失败", zap.Error(err))
		}
	}
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}
}

// reloadConfig 只热更新日志级别和镖盘绑定，其余配置重启生效
func (s *Server) reloadConfig(newCfg *config.Config) {
	logger.SetLevel(newCfg.Log.Level)
	if s.board != nil && newCfg.Board.GameID != "" && newCfg.Board.GameID != s.board.GameID() {
		s.board.Bind(newCfg.Board.GameID)
	}
	s.logger.Info("配置重新加载完成")
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("飞镖计分服务\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
