// Package notify 负责把扫码事件实时推送到用户打开的看板连接.
package notify

import (
	"errors"
	"sync"

	"qrcode-platform/internal/metrics"
)

// 消息类型
const (
	MessageTypeScan = "scan"
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// ErrNoSubscriber 用户当前没有打开的实时连接
var ErrNoSubscriber = errors.New("用户没有打开的实时连接")

// ErrCongested 用户的全部连接发送缓冲都已满
var ErrCongested = errors.New("实时连接全部拥塞")

// Message 推送给客户端的消息
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub 按用户维护实时连接
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*Client]struct{})}
}

// Register 登记客户端
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	metrics.LiveConnections.Inc()
}

// Unregister 注销客户端并关闭其发送通道, 可重复调用
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	metrics.LiveConnections.Dec()
}

// Subscribers 返回用户的连接数
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish 向用户的全部连接发送消息, 返回成功投递的连接数.
// 发送缓冲已满的连接会被跳过.
func (h *Hub) Publish(userID uint, msg Message) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[userID]
	if len(set) == 0 {
		return 0, ErrNoSubscriber
	}

	delivered := 0
	for c := range set {
		select {
		case c.send <- msg:
			delivered++
		default:
		}
	}
	if delivered == 0 {
		return 0, ErrCongested
	}
	return delivered, nil
}
