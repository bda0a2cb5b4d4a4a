package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wfunc/darts-engine/internal/logger"
)

// Client 观战客户端
type Client struct {
	ID       string
	GameID   string
	CallerID uint

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, gameID string, callerID uint) *Client {
	return &Client{
		ID:       uuid.New().String(),
		GameID:   gameID,
		CallerID: callerID,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.opts.SendBuffer),
	}
}

// readPump 观战连接只接收 ping
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(MessageTypeError, map[string]string{"error": "消息格式错误"})
		return
	}
	logger.LogWebSocketMessage("receive", msg.Type, nil)

	switch msg.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, nil)
	case MessageTypePong:
	default:
		c.reply(MessageTypeError, map[string]string{"error": "观战连接不支持: " + msg.Type})
	}
}

func (c *Client) reply(msgType string, data interface{}) {
	payload, err := c.hub.encode(msgType, c.GameID, data)
	if err != nil {
		return
	}
	// 注销后 send 会被关闭，这里只在 Hub 持有时投递
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.rooms[c.GameID][c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writePump 写入消息
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if !ok {
				// Hub关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
