// pkg/stream/message.go
package stream

import (
	"time"

	"github.com/google/uuid"
)

// MessageType 线上消息类型
type MessageType string

const (
	// MessageTypeLog 日志事件
	MessageTypeLog MessageType = "log"
	// MessageTypeMetrics 指标快照
	MessageTypeMetrics MessageType = "metrics"
	// MessageTypeError 错误通知
	MessageTypeError MessageType = "error"
	// MessageTypeHeartbeat 心跳和确认
	MessageTypeHeartbeat MessageType = "heartbeat"
)

// Message 网关与客户端之间的线上消息
// 消息 ID 由网关生成，只需要在回放窗口内不碰撞，不要求跨进程唯一
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"` // epoch 毫秒
	ID        string      `json:"id"`
	Data      any         `json:"data,omitempty"`
}

// newMessageAt 创建消息
func newMessageAt(typ MessageType, data any, now time.Time) *Message {
	return &Message{
		Type:      typ,
		Timestamp: now.UnixMilli(),
		ID:        uuid.New().String(),
		Data:      data,
	}
}

// Event 上游投递的单条日志事件
// 采样和格式化已在上游完成，网关只负责分发
type Event struct {
	Level     string         `json:"level"`
	Service   string         `json:"service"`
	Message   string         `json:"message"`
	Timestamp int64          `json:"timestamp"` // epoch 毫秒
	Fields    map[string]any `json:"fields,omitempty"`
}

// controlMessage 客户端入站控制消息
type controlMessage struct {
	Type    string  `json:"type"`
	Filters *Filter `json:"filters,omitempty"`
}

// ackPayload 确认消息负载，随 heartbeat 类型消息下发
type ackPayload struct {
	Status    string  `json:"status"`
	SessionID string  `json:"session_id,omitempty"`
	Replayed  int     `json:"replayed,omitempty"`
	Filters   *Filter `json:"filters,omitempty"`
}

// errorPayload 错误消息负载
type errorPayload struct {
	Error       string `json:"error"`
	MessageType string `json:"message_type,omitempty"`
}
