package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/wfunc/darts-engine/internal/notify"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 消息类型
const (
	MessageTypeConnected = "connected"
	MessageTypeSnapshot  = "snapshot"
	MessageTypeEvent     = "event"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// Message WebSocket消息
type Message struct {
	Type      string              `json:"type"`
	GameID    string              `json:"game_id,omitempty"`
	Data      jsoniter.RawMessage `json:"data,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

// Options 连接参数
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	SendBuffer      int
}

func (o *Options) normalize() {
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = 1024
	}
	if o.WriteBufferSize <= 0 {
		o.WriteBufferSize = 1024
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	// ping 周期必须小于 pong 超时
	if o.PingInterval <= 0 || o.PingInterval >= o.PongTimeout {
		o.PingInterval = o.PongTimeout * 9 / 10
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
}

// Hub 按比赛分组的观战连接中心
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	upgrader websocket.Upgrader
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewHub 创建Hub
func NewHub(opts Options, logger *zap.Logger) *Hub {
	opts.normalize()
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Run 运行Hub，直到 ctx 结束
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.GameID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.GameID] = room
	}
	room[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("观战连接加入",
		zap.String("client_id", client.ID),
		zap.String("game_id", client.GameID),
		zap.Uint("caller_id", client.CallerID))
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[client.GameID]; ok {
		if _, ok := room[client]; ok {
			delete(room, client)
			close(client.send)
		}
		if len(room) == 0 {
			delete(h.rooms, client.GameID)
		}
	}
	h.mu.Unlock()

	h.logger.Info("观战连接断开",
		zap.String("client_id", client.ID),
		zap.String("game_id", client.GameID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for client := range room {
			close(client.send)
		}
		delete(h.rooms, id)
	}
}

// encode 组装消息
func (h *Hub) encode(msgType, gameID string, data interface{}) ([]byte, error) {
	msg := &Message{Type: msgType, GameID: gameID, Timestamp: h.now().Unix()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

// SendToGame 推送给比赛的全部观战连接，返回成功投递数
func (h *Hub) SendToGame(gameID string, msgType string, data interface{}) (int, error) {
	payload, err := h.encode(msgType, gameID, data)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.rooms[gameID] {
		select {
		case client.send <- payload:
			sent++
		default:
			// 慢连接丢弃本条，下一条事件仍携带完整快照
			h.logger.Warn("观战连接发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("game_id", gameID))
		}
	}
	return sent, nil
}

// Publish 实现 notify.Publisher
func (h *Hub) Publish(_ context.Context, e *notify.Event) error {
	_, err := h.SendToGame(e.GameID, MessageTypeEvent, e)
	return err
}

// Count 比赛的观战连接数
func (h *Hub) Count(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// Serve 升级连接并加入比赛房间，initial 作为首条快照发送
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, gameID string, callerID uint, initial interface{}) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newClient(h, conn, gameID, callerID)
	if payload, err := h.encode(MessageTypeSnapshot, gameID, initial); err == nil {
		client.send <- payload
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}
