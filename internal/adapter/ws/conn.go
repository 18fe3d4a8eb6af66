package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hydrotech/groundwater-serve/internal/registry"
)

// conn adapts a gorilla websocket connection to registry.Conn. A mutex
// serializes writes: the registry fans out from many goroutines and gorilla
// permits only one concurrent writer.
type conn struct {
	socket      *websocket.Conn
	sendTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConn(socket *websocket.Conn, sendTimeout time.Duration) *conn {
	return &conn{socket: socket, sendTimeout: sendTimeout}
}

// Send marshals one envelope to the peer under a write deadline. A timed-out
// or broken peer returns an error, which the registry treats as grounds for
// eviction.
func (c *conn) Send(msg registry.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.socket.SetWriteDeadline(time.Now().Add(c.sendTimeout)); err != nil {
		return err
	}
	return c.socket.WriteJSON(msg)
}

// Close shuts the underlying socket. Safe to call from both the read loop
// and a broadcast eviction; only the first call closes.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.socket.Close()
	})
	return err
}
