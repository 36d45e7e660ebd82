package realtime

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second
)

var errSubscriberClosed = errors.New("kiosk subscriber closed")

var connCounter uint64

// ConnSubscriber adapts a websocket connection to Subscriber. Writes are serialized.
type ConnSubscriber struct {
	conn   *websocket.Conn
	id     string
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewConnSubscriber wraps conn.
func NewConnSubscriber(conn *websocket.Conn) *ConnSubscriber {
	return &ConnSubscriber{
		conn: conn,
		id:   fmt.Sprintf("kiosk-%d", atomic.AddUint64(&connCounter, 1)),
		done: make(chan struct{}),
	}
}

// ID implements Subscriber.
func (s *ConnSubscriber) ID() string { return s.id }

// Send implements Subscriber.
func (s *ConnSubscriber) Send(payload []byte) error {
	return s.write(websocket.TextMessage, payload)
}

// Close implements Subscriber.
func (s *ConnSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return s.conn.Close()
}

func (s *ConnSubscriber) write(messageType int, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSubscriberClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, payload)
}

// Serve joins the campaign room, keeps the connection alive with pings and blocks until the display
// disconnects. Messages sent by the display are ignored.
func (h *Hub) Serve(campaignID string, conn *websocket.Conn, initial []byte) {
	sub := NewConnSubscriber(conn)
	defer h.Leave(campaignID, sub)

	if initial != nil {
		if err := sub.Send(initial); err != nil {
			return
		}
	}
	h.Join(campaignID, sub)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sub.write(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-sub.done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
