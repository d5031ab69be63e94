// app/gateway/internal/ingest/server_test.go
package ingest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/logstream/pkg/logger"
	"github.com/lk2023060901/logstream/pkg/stream"
)

// fakePublisher 记录已发布事件
type fakePublisher struct {
	mu     sync.Mutex
	events []*stream.Event
}

func (p *fakePublisher) Publish(ev *stream.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *fakePublisher) published() []*stream.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events
}

func newTestServer(t *testing.T) (*Server, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	s, err := NewServer(&Config{Mode: gin.TestMode}, pub, logger.NewNoop())
	require.NoError(t, err)
	return s, pub
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServerHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServerIngestSingle(t *testing.T) {
	s, pub := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/v1/logs",
		`{"level":"error","service":"api","message":"boom","timestamp":1700000000000}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"accepted":1}`, w.Body.String())

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Level)
	assert.Equal(t, "api", events[0].Service)
	assert.Equal(t, "boom", events[0].Message)
	assert.Equal(t, int64(1700000000000), events[0].Timestamp)
}

func TestServerIngestBatch(t *testing.T) {
	s, pub := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/v1/logs/batch",
		`[{"level":"info","service":"api","message":"a"},{"level":"warn","service":"db","message":"b"}]`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"accepted":2}`, w.Body.String())

	events := pub.published()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Message)
	assert.Equal(t, "b", events[1].Message)
}

func TestServerIngestDefaultsTimestamp(t *testing.T) {
	s, pub := newTestServer(t)

	before := time.Now().UnixMilli()
	w := doRequest(s, http.MethodPost, "/v1/logs",
		`{"level":"info","service":"api","message":"no ts"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	events := pub.published()
	require.Len(t, events, 1)
	assert.GreaterOrEqual(t, events[0].Timestamp, before)
}

func TestServerIngestBadPayload(t *testing.T) {
	s, pub := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/v1/logs", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(s, http.MethodPost, "/v1/logs/batch", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, pub.published())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Port = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.Mode = "fancy"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
