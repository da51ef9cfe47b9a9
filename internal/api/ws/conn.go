package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/immxrtalbeast/callrelay/internal/domain"
)

type frame struct {
	data   []byte
	close  bool
	code   int
	reason string
}

// Conn is one websocket endpoint. Outbound frames go through a buffered queue
// drained by a single writer goroutine, which keeps per-endpoint ordering.
type Conn struct {
	ID          domain.EndpointID
	ConnectedAt time.Time

	socket    *websocket.Conn
	events    chan frame
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(socket *websocket.Conn, queueSize int) *Conn {
	return &Conn{
		ID:          domain.EndpointID(uuid.New().String()),
		ConnectedAt: time.Now().UTC(),
		socket:      socket,
		events:      make(chan frame, queueSize),
		done:        make(chan struct{}),
	}
}

func (c *Conn) enqueue(f frame) error {
	select {
	case <-c.done:
		return ErrEndpointClosed
	default:
	}

	select {
	case c.events <- f:
		return nil
	case <-c.done:
		return ErrEndpointClosed
	default:
		return ErrQueueFull
	}
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.socket.Close()
	})
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
