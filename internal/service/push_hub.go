package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"quiz_bot_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	onlineTTL  = 2 * time.Minute // 在线状态过期时间
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage 推送给聊天端的事件载荷
type WSMessage struct {
	Type string      `json:"type"` // prompt / feedback / summary / notice
	Data interface{} `json:"data"`
}

type pushClient struct {
	hub     *PushHub
	conn    *websocket.Conn
	send    chan []byte
	userID  uint
	limiter *rate.Limiter
}

// PushHub 向已连接的用户实时推送会话事件（出题、判题反馈、总结），
// 相当于机器人主动下发消息的通道。未连接的用户只收 HTTP 响应。
type PushHub struct {
	mu         sync.RWMutex
	clients    map[uint]*pushClient
	register   chan *pushClient
	unregister chan *pushClient
	done       chan struct{}
	rdb        *redis.Client
}

func NewPushHub(rdb *redis.Client) *PushHub {
	return &PushHub{
		clients:    make(map[uint]*pushClient),
		register:   make(chan *pushClient),
		unregister: make(chan *pushClient),
		done:       make(chan struct{}),
		rdb:        rdb,
	}
}

func (h *PushHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// 同一用户新连接顶掉旧连接
			if old, ok := h.clients[client.userID]; ok {
				close(old.send)
				old.conn.Close()
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			h.markOnline(client.userID)
		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			h.markOffline(client.userID)
		case <-h.done:
			h.mu.Lock()
			for _, client := range h.clients {
				close(client.send)
				client.conn.Close()
			}
			h.clients = make(map[uint]*pushClient)
			h.mu.Unlock()
			return
		}
	}
}

func (h *PushHub) Stop() {
	close(h.done)
}

func (h *PushHub) markOnline(userID uint) {
	if h.rdb == nil {
		return
	}
	h.rdb.Set(context.Background(), fmt.Sprintf("quiz:online:%d", userID), 1, onlineTTL)
}

func (h *PushHub) markOffline(userID uint) {
	if h.rdb == nil {
		return
	}
	h.rdb.Del(context.Background(), fmt.Sprintf("quiz:online:%d", userID))
}

// SendToUser 推送一条事件；用户未连接时静默丢弃
func (h *PushHub) SendToUser(userID uint, msg WSMessage) {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("failed to marshal push message", zap.Error(err))
		return
	}

	select {
	case client.send <- payload:
	default:
		// 发送缓冲已满，断开慢客户端
		h.unregister <- client
		client.conn.Close()
	}
}

// ServeWS 升级连接并挂入推送通道
func (h *PushHub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &pushClient{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 16),
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump 只负责心跳与关闭检测，推送通道不接收业务消息
func (c *pushClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.markOnline(c.userID)
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.userID))
			}
			break
		}
		if !c.limiter.Allow() {
			continue
		}
	}
}

func (c *pushClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
