// pkg/stream/control_test.go
package stream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestControlHandler(clock *fakeClock) *ControlHandler {
	registry := NewRegistry(NewRateLimiter(), 0)
	source := MetricsSourceFunc(func() *Snapshot {
		return &Snapshot{Goroutines: 7, ActiveSessions: registry.Count()}
	})
	h := NewControlHandler(NewBroadcaster(source, registry, time.Second))
	if clock != nil {
		h.now = clock.Now
	}
	return h
}

func decodeAck(t *testing.T, m wireMessage) ackPayload {
	t.Helper()
	var ack ackPayload
	require.NoError(t, json.Unmarshal(m.Data, &ack))
	return ack
}

func decodeError(t *testing.T, m wireMessage) errorPayload {
	t.Helper()
	var p errorPayload
	require.NoError(t, json.Unmarshal(m.Data, &p))
	return p
}

func TestControlSetFilters(t *testing.T) {
	h := newTestControlHandler(nil)
	sess, conn := newTestSession("s1", &Filter{Levels: []string{"info"}, Services: []string{"api"}})

	h.Handle(sess, []byte(`{"type":"setFilters","filters":{"levels":["error","warn"]}}`))

	// 提交的维度替换，未提交的维度保留
	f := sess.Filter()
	assert.Equal(t, []string{"error", "warn"}, f.Levels)
	assert.Equal(t, []string{"api"}, f.Services)

	acks := conn.messagesOfType(t, MessageTypeHeartbeat)
	require.Len(t, acks, 1)
	ack := decodeAck(t, acks[0])
	assert.Equal(t, "filters_updated", ack.Status)
	require.NotNil(t, ack.Filters)
	assert.Equal(t, []string{"error", "warn"}, ack.Filters.Levels)
}

func TestControlHeartbeat(t *testing.T) {
	clock := newFakeClock()
	h := newTestControlHandler(clock)
	sess, conn := newTestSession("s1", nil)

	clock.Advance(30 * time.Second)
	h.Handle(sess, []byte(`{"type":"heartbeat"}`))

	acks := conn.messagesOfType(t, MessageTypeHeartbeat)
	require.Len(t, acks, 1)
	assert.Equal(t, "ok", decodeAck(t, acks[0]).Status)

	// 控制消息刷新活跃时间
	assert.Equal(t, clock.Now(), sess.LastActive())
}

func TestControlGetMetrics(t *testing.T) {
	h := newTestControlHandler(nil)
	sess, conn := newTestSession("s1", nil)

	h.Handle(sess, []byte(`{"type":"getMetrics"}`))

	msgs := conn.messagesOfType(t, MessageTypeMetrics)
	require.Len(t, msgs, 1)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(msgs[0].Data, &snap))
	assert.Equal(t, 7, snap.Goroutines)
}

func TestControlUnknownType(t *testing.T) {
	h := newTestControlHandler(nil)
	sess, conn := newTestSession("s1", nil)

	h.Handle(sess, []byte(`{"type":"bogus"}`))

	msgs := conn.messagesOfType(t, MessageTypeError)
	require.Len(t, msgs, 1)
	p := decodeError(t, msgs[0])
	assert.Equal(t, "unknown message type", p.Error)
	assert.Equal(t, "bogus", p.MessageType)

	// 连接保持打开，后续消息照常处理
	assert.False(t, conn.isClosed())
	h.Handle(sess, []byte(`{"type":"heartbeat"}`))
	assert.Len(t, conn.messagesOfType(t, MessageTypeHeartbeat), 1)
}

func TestControlMalformedPayload(t *testing.T) {
	h := newTestControlHandler(nil)
	sess, conn := newTestSession("s1", nil)

	h.Handle(sess, []byte(`{not json`))

	msgs := conn.messagesOfType(t, MessageTypeError)
	require.Len(t, msgs, 1)
	assert.Equal(t, "malformed control message", decodeError(t, msgs[0]).Error)
	assert.False(t, conn.isClosed())
}
