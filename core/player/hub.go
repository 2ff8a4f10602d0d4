package player

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ReadTune/core/journey"
	"ReadTune/logger"

	"github.com/gorilla/websocket"
)

// MessageType 消息类型
type MessageType string

const (
	// 系统消息
	MsgTypePing  MessageType = "ping"  // 心跳
	MsgTypePong  MessageType = "pong"  // 心跳响应
	MsgTypeError MessageType = "error" // 错误消息

	// 播放控制消息（查看者 -> 服务端）
	MsgTypePlayTrack       MessageType = "play_track"        // 点选某条日志的曲目
	MsgTypeTogglePlayPause MessageType = "toggle_play_pause" // 播放/暂停
	MsgTypePlayAll         MessageType = "play_all"          // 从第一首开始播放
	MsgTypeClosePlayer     MessageType = "close_player"      // 关闭播放条
	MsgTypeRefresh         MessageType = "refresh"           // 请求全量刷新
)

// WSMessage 查看者发来的 WebSocket 消息
type WSMessage struct {
	Type      MessageType `json:"type"`
	LogID     string      `json:"logId,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// OutMessage 推送给查看者的消息：会话事件加时间戳
type OutMessage struct {
	journey.Event
	Timestamp int64 `json:"timestamp"`
}

// Client 一个旅程详情页查看者的连接
// 每个连接独占一个会话和一个调度器，连接断开即会话销毁
type Client struct {
	Hub       *PlayerHub
	Conn      *websocket.Conn
	Send      chan []byte
	Session   *journey.Session
	Scheduler *journey.Scheduler
	UserID    int64

	sendMu     sync.Mutex
	sendClosed bool
}

// trySend 非阻塞投递出站消息
// 通道关闭后或缓冲区满时丢弃；断开路径上的残留发送方不会崩溃
func (c *Client) trySend(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// closeSend 关闭出站通道，只有第一次调用生效
// 关闭和发送共用一把锁，保证不会往已关闭的通道写
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// PlayerHub 播放条 WebSocket 管理中心
type PlayerHub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	registry *journey.Registry

	mu   sync.RWMutex
	done chan struct{}
}

// NewPlayerHub 创建播放 Hub
func NewPlayerHub(registry *journey.Registry) *PlayerHub {
	return &PlayerHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   registry,
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *PlayerHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *PlayerHub) Stop() {
	close(h.done)
}

// Register 注册客户端
func (h *PlayerHub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *PlayerHub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *PlayerHub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.registry.Register(client.Session)
	client.Scheduler.Start()
	go client.forwardEvents()

	logger.Info("播放条连接建立",
		logger.String("journeyId", client.Session.JourneyID()),
		logger.Int64("user", client.UserID))
}

func (h *PlayerHub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	h.mu.Unlock()

	h.registry.Unregister(client.Session)
	client.Scheduler.Stop()
	client.Session.Close()
	client.closeSend()

	logger.Info("播放条连接断开",
		logger.String("journeyId", client.Session.JourneyID()),
		logger.Int64("user", client.UserID))
}

func (h *PlayerHub) cleanup() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		h.registry.Unregister(client.Session)
		client.Scheduler.Stop()
		client.Session.Close()
		client.closeSend()
	}
}

// forwardEvents 把会话事件流转成出站消息
// 会话关闭后事件通道关闭，循环自然退出
func (c *Client) forwardEvents() {
	for event := range c.Session.Events() {
		out := OutMessage{Event: event, Timestamp: time.Now().UnixMilli()}
		data, err := json.Marshal(out)
		if err != nil {
			logger.Warn("会话事件序列化失败", logger.ErrorField(err))
			continue
		}
		c.trySend(data)
	}
}

// ReadPump 读取消息循环
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("journeyId", c.Session.JourneyID()))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("invalid message format", logger.ErrorField(err))
			continue
		}

		c.handleMessage(&msg)
	}
}

// handleMessage 把查看者命令路由到会话
func (c *Client) handleMessage(msg *WSMessage) {
	switch msg.Type {
	case MsgTypePing:
		pong := map[string]interface{}{"type": MsgTypePong, "timestamp": time.Now().UnixMilli()}
		if data, err := json.Marshal(pong); err == nil {
			c.trySend(data)
		}

	case MsgTypePlayTrack:
		c.Session.SelectTrack(msg.LogID)

	case MsgTypeTogglePlayPause:
		c.Session.TogglePlayPause()

	case MsgTypePlayAll:
		c.Session.PlayAll()

	case MsgTypeClosePlayer:
		c.Session.ClosePlayer()

	case MsgTypeRefresh:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		c.Session.Refresh(ctx)
		cancel()

	default:
		logger.Debug("未知播放条消息类型", logger.String("type", string(msg.Type)))
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并发送队列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
