// pkg/stream/control.go
package stream

import (
	"time"

	"github.com/lk2023060901/logstream/pkg/logger"
	"github.com/lk2023060901/logstream/pkg/serializer"
)

// ControlHandler 处理会话的入站控制消息
// 无法解析的负载和未知类型都通过 error 消息回给原会话，
// 从不因此关闭连接
type ControlHandler struct {
	broadcaster *Broadcaster
	serializer  serializer.Serializer
	logger      logger.Logger
	now         func() time.Time
}

// NewControlHandler 创建控制通道处理器
func NewControlHandler(broadcaster *Broadcaster) *ControlHandler {
	return &ControlHandler{
		broadcaster: broadcaster,
		serializer:  serializer.Default(),
		logger:      logger.NewNoop(),
		now:         time.Now,
	}
}

// Handle 处理一条入站控制消息
func (h *ControlHandler) Handle(sess *Session, data []byte) {
	sess.Touch(h.now())

	var req controlMessage
	if err := h.serializer.Deserialize(data, &req); err != nil {
		h.logger.Debug("malformed control message", "session_id", sess.ID(), "error", err)
		h.sendError(sess, "malformed control message", "")
		return
	}

	switch req.Type {
	case "setFilters":
		// 字段级合并由这里完成，引擎只看到整体替换后的过滤器
		merged := sess.Filter().Merge(req.Filters)
		sess.SetFilter(merged)
		h.sendAck(sess, &ackPayload{Status: "filters_updated", Filters: merged})

	case "getMetrics":
		if err := h.broadcaster.PushTo(sess); err != nil {
			h.logger.Debug("on-demand metrics push failed", "session_id", sess.ID(), "error", err)
		}

	case "heartbeat":
		h.sendAck(sess, &ackPayload{Status: "ok"})

	default:
		h.sendError(sess, "unknown message type", req.Type)
	}
}

// sendAck 发送确认消息，随 heartbeat 类型下发
func (h *ControlHandler) sendAck(sess *Session, payload *ackPayload) {
	h.send(sess, newMessageAt(MessageTypeHeartbeat, payload, h.now()))
}

// sendError 发送错误消息
func (h *ControlHandler) sendError(sess *Session, errMsg, msgType string) {
	h.send(sess, newMessageAt(MessageTypeError, &errorPayload{Error: errMsg, MessageType: msgType}, h.now()))
}

// send 编码并发送，发送失败不在此处处理，连接死亡由关闭回调收敛
func (h *ControlHandler) send(sess *Session, msg *Message) {
	data, err := h.serializer.Serialize(msg)
	if err != nil {
		h.logger.Error("failed to encode control reply", "error", err)
		return
	}
	sess.conn.Send(data)
}
