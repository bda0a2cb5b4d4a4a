package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wfunc/darts-engine/internal/config"
)

// 模块名
const (
	ModuleGame      = "game"
	ModuleDatabase  = "database"
	ModuleBoard     = "board"
	ModuleWebSocket = "websocket"
	ModuleMQ        = "mq"
	ModuleHTTP      = "http"
)

var (
	logger *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	once   sync.Once
	mu     sync.RWMutex

	// 模块日志器
	moduleLoggers map[string]*zap.Logger
)

// Init 初始化日志系统
func Init(cfg *config.LogConfig) error {
	var err error
	once.Do(func() {
		var writers []zapcore.WriteSyncer
		var errorWriter zapcore.WriteSyncer

		if cfg.Output == "stdout" || cfg.Output == "both" || cfg.Output == "" {
			writers = append(writers, zapcore.AddSync(os.Stdout))
		}

		if cfg.Output == "file" || cfg.Output == "both" {
			if err = os.MkdirAll(cfg.File.Path, 0755); err != nil {
				return
			}
			writers = append(writers, zapcore.AddSync(rotating(cfg.File, cfg.File.Filename)))
			errorWriter = zapcore.AddSync(rotating(cfg.File, "error.log"))
		}

		build(cfg, zapcore.NewMultiWriteSyncer(writers...), errorWriter)
	})

	return err
}

// InitWithWriter 输出到指定 writer，测试使用
func InitWithWriter(cfg *config.LogConfig, w io.Writer) {
	build(cfg, zapcore.AddSync(w), nil)
}

// rotating 按大小轮转的文件写入器
func rotating(file config.LogFileConfig, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(file.Path, name),
		MaxSize:    file.MaxSize, // MB
		MaxAge:     file.MaxAge,  // days
		MaxBackups: file.MaxBackups,
		Compress:   file.Compress,
	}
}

func build(cfg *config.LogConfig, out zapcore.WriteSyncer, errOut zapcore.WriteSyncer) {
	level.SetLevel(parseLevel(cfg.Level))
	encoder := newEncoder(cfg.Format)

	cores := []zapcore.Core{zapcore.NewCore(encoder, out, level)}
	// 错误日志单独落盘
	if errOut != nil {
		cores = append(cores, zapcore.NewCore(encoder, errOut, zapcore.ErrorLevel))
	}
	core := zapcore.NewTee(cores...)

	root := zap.New(
		core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	modules := make(map[string]*zap.Logger, len(cfg.Modules))
	for module, levelStr := range cfg.Modules {
		moduleLevel := parseLevel(levelStr)
		moduleCore := zapcore.NewCore(encoder, out, moduleLevel)
		modules[module] = zap.New(moduleCore, zap.AddCaller()).Named(module)
	}

	mu.Lock()
	defer mu.Unlock()
	logger = root
	moduleLoggers = modules
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// parseLevel 解析日志级别
func parseLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogger 获取日志器
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		// 未初始化时使用默认配置
		defaultLogger, _ := zap.NewProduction()
		return defaultLogger
	}
	return logger
}

// GetModuleLogger 获取模块日志器，没有单独配置级别时返回带模块名的全局日志器
func GetModuleLogger(module string) *zap.Logger {
	mu.RLock()
	moduleLogger, ok := moduleLoggers[module]
	mu.RUnlock()
	if ok {
		return moduleLogger
	}
	return GetLogger().WithOptions(zap.AddCallerSkip(-1)).Named(module)
}

// SetLevel 动态设置全局日志级别
func SetLevel(levelStr string) {
	level.SetLevel(parseLevel(levelStr))
}

// Sync 同步日志缓冲区
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()

	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// Debug 输出调试日志
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info 输出信息日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn 输出警告日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error 输出错误日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal 输出致命错误日志并退出程序
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogRequest 记录请求日志
func LogRequest(method, path string, statusCode int, latency time.Duration, clientIP string) {
	GetModuleLogger(ModuleHTTP).Info("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", statusCode),
		zap.Duration("latency", latency),
		zap.String("client_ip", clientIP),
	)
}

// LogError 记录错误日志
func LogError(err error, msg string, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	GetLogger().Error(msg, fields...)
}

// LogPanic 记录panic日志
func LogPanic(recovered interface{}, stack []byte) {
	GetLogger().Error("panic recovered",
		zap.Any("panic", recovered),
		zap.ByteString("stack", stack),
	)
}

// LogGameEvent 记录比赛事件
func LogGameEvent(event string, gameID string, data map[string]interface{}) {
	GetModuleLogger(ModuleGame).Info("game_event",
		zap.String("event", event),
		zap.String("game_id", gameID),
		zap.Any("data", data),
	)
}

// LogBoardInput 记录镖盘输入
func LogBoardInput(port string, raw string, err error) {
	l := GetModuleLogger(ModuleBoard)
	if err != nil {
		l.Warn("board_input_rejected",
			zap.String("port", port),
			zap.String("raw", raw),
			zap.Error(err),
		)
		return
	}
	l.Debug("board_input", zap.String("port", port), zap.String("raw", raw))
}

// LogWebSocketMessage 记录WebSocket消息
func LogWebSocketMessage(direction string, messageType string, payload interface{}) {
	GetModuleLogger(ModuleWebSocket).Debug("ws_message",
		zap.String("direction", direction), // "send" or "receive"
		zap.String("type", messageType),
		zap.Any("payload", payload),
	)
}

// LogMQMessage 记录消息队列发布
func LogMQMessage(exchange string, routingKey string, err error) {
	l := GetModuleLogger(ModuleMQ)
	if err != nil {
		l.Error("mq_publish_failed",
			zap.String("exchange", exchange),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return
	}
	l.Debug("mq_publish", zap.String("exchange", exchange), zap.String("routing_key", routingKey))
}

// LogDatabaseOperation 记录一条SQL，出错记错误，慢查询记警告
func LogDatabaseOperation(sql string, rows int64, elapsed time.Duration, slow bool, err error) {
	l := GetModuleLogger(ModuleDatabase)
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil:
		fields = append(fields, zap.Error(err))
		l.Error("database_operation_failed", fields...)
	case slow:
		l.Warn("database_slow_query", fields...)
	default:
		l.Debug("database_operation", fields...)
	}
}

// Cleanup 清理日志资源
func Cleanup() {
	if err := Sync(); err != nil {
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}
