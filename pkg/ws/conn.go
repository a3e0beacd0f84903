package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// outbound 写队列中的一项，close 为 true 时写出关闭帧后结束
type outbound struct {
	data   []byte
	close  bool
	code   int
	reason string
}

// wsConn 基于 gorilla/websocket 的 Conn 实现
// 所有写操作由 writePump 串行完成
type wsConn struct {
	conn         *websocket.Conn
	send         chan outbound
	writeWait    time.Duration
	pingInterval time.Duration

	closing   atomic.Bool
	closeCode atomic.Int32 // 本端发起关闭时的关闭码
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

func newWSConn(conn *websocket.Conn, cfg *Config) *wsConn {
	return &wsConn{
		conn:         conn,
		send:         make(chan outbound, cfg.SendQueueSize),
		writeWait:    cfg.WriteWait,
		pingInterval: cfg.PingInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// WriteMessage 非阻塞入队，队列满时返回 ErrSendQueueFull
func (c *wsConn) WriteMessage(data []byte) error {
	if c.closing.Load() {
		return ErrConnectionClosed
	}
	select {
	case c.send <- outbound{data: data}:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close 关闭帧排在已入队的消息之后
func (c *wsConn) Close(code int, reason string) error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}
	c.closeCode.Store(int32(code))
	select {
	case c.send <- outbound{close: true, code: code, reason: reason}:
	default:
		// 队列已满，直接断开
		return c.conn.Close()
	}
	return nil
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// localCloseCode 本端未发起关闭时返回 0
func (c *wsConn) localCloseCode() int {
	return int(c.closeCode.Load())
}

// shutdown 读循环结束后停止写协程
func (c *wsConn) shutdown() {
	c.closing.Store(true)
	c.stopOnce.Do(func() { close(c.stop) })
}

// writePump 写入消息
func (c *wsConn) writePump() {
	var tick <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer func() {
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				return
			}
			if msg.close {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(msg.code, msg.reason))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
				return
			}

		case <-tick:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				return
			}

		case <-c.stop:
			return
		}
	}
}

// closeCodeOf 读循环出错时的关闭码
func (c *wsConn) closeCodeOf(err error) int {
	if code := c.localCloseCode(); code != 0 {
		return code
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}
