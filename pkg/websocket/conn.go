// pkg/websocket/conn.go
package websocket

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lk2023060901/logstream/pkg/logger"
)

// Connection WebSocket 连接封装
// 出站消息经由带缓冲的发送队列异步写入，写失败只会在写循环中被观察到
type Connection struct {
	id   string
	conn *websocket.Conn

	// 配置
	readTimeout  time.Duration
	writeTimeout time.Duration
	pingInterval time.Duration

	// 发送队列
	sendChan chan []byte

	logger logger.Logger

	// 状态
	closed    atomic.Bool
	closeChan chan struct{}
	closeOnce sync.Once
	closeErr  error

	// 连接信息
	remoteAddr  string
	connectedAt time.Time
}

// newConnection 创建连接（由 Acceptor 在升级成功后调用）
func newConnection(conn *websocket.Conn, cfg *AcceptorConfig, log logger.Logger) *Connection {
	c := &Connection{
		id:           uuid.New().String(),
		conn:         conn,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		sendChan:     make(chan []byte, cfg.SendQueueSize),
		closeChan:    make(chan struct{}),
		logger:       log,
		remoteAddr:   conn.RemoteAddr().String(),
		connectedAt:  time.Now(),
	}

	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return c
}

// ID 返回连接 ID
func (c *Connection) ID() string {
	return c.id
}

// RemoteAddr 返回远程地址
func (c *Connection) RemoteAddr() string {
	return c.remoteAddr
}

// ConnectedAt 返回连接时间
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// IsClosed 检查连接是否已关闭
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Send 发送文本消息（异步，非阻塞）
// 队列满视为该连接已不可用，由调用方决定是否关闭
func (c *Connection) Send(data []byte) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case c.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Start 启动读写循环
// onMessage 在每条入站文本消息上调用；onClose 在连接终止时调用一次
func (c *Connection) Start(onMessage func(data []byte), onClose func(err error)) {
	go c.writeLoop()
	if c.pingInterval > 0 {
		go c.pingLoop()
	}
	go c.readLoop(onMessage, onClose)
}

// readLoop 读取循环
func (c *Connection) readLoop(onMessage func(data []byte), onClose func(err error)) {
	defer func() {
		c.Close(websocket.CloseNormalClosure, "")
		if onClose != nil {
			onClose(c.closeErr)
		}
	}()

	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		})
	}

	for {
		if c.IsClosed() {
			return
		}

		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.IsClosed() || err == io.EOF {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if c.logger != nil {
				c.logger.Debug("websocket read error", "error", err, "conn_id", c.id)
			}
			c.closeErr = err
			return
		}

		if c.readTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}

// writeLoop 写入循环
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.sendChan:
			if c.writeTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if c.logger != nil {
					c.logger.Debug("websocket write error", "error", err, "conn_id", c.id)
				}
				c.closeErr = err
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// pingLoop 心跳循环
// WriteControl 允许和 WriteMessage 并发调用
func (c *Connection) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			if err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// Close 关闭连接，发送带关闭码和原因的关闭帧
// 幂等，只有第一次调用生效
func (c *Connection) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeChan)

		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		c.conn.Close()
	})
	return nil
}

// CloseError 返回导致连接关闭的错误
func (c *Connection) CloseError() error {
	return c.closeErr
}
