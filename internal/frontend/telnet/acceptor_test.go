package telnet

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/ludo/internal/config"
)

// echoHandler echoes each line until the client sends "quit".
type echoHandler struct {
	sessions atomic.Int32
}

func (h *echoHandler) HandleSession(_ context.Context, conn *Conn) error {
	h.sessions.Add(1)
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		if line == "quit" {
			return conn.WriteLine("bye")
		}
		_ = conn.WriteLine("echo: " + line)
	}
}

// parkedHandler blocks in ReadLine until the connection closes.
type parkedHandler struct {
	started chan struct{}
}

func (h *parkedHandler) HandleSession(_ context.Context, conn *Conn) error {
	h.started <- struct{}{}
	_, err := conn.ReadLine()
	return err
}

func startAcceptor(t *testing.T, handler SessionHandler, maxConns int) *Acceptor {
	t.Helper()
	cfg := config.TelnetConfig{
		Host:           "127.0.0.1",
		ReadTimeout:    time.Hour,
		WriteTimeout:   5 * time.Second,
		MaxConnections: maxConns,
	}
	acc := NewAcceptor(cfg, handler, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- acc.ListenAndServe() }()
	require.Eventually(t, func() bool { return acc.IsRunning() && acc.Addr() != "" }, 2*time.Second, 5*time.Millisecond)
	t.Cleanup(func() {
		acc.Stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("ListenAndServe did not return after Stop")
		}
	})
	return acc
}

// client is a raw TCP client that collects filtered text.
type client struct {
	t    *testing.T
	conn net.Conn
	seen string
}

func dial(t *testing.T, acc *Acceptor) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", acc.Addr(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(line string) {
	_, err := c.conn.Write([]byte(line + "\r\n"))
	require.NoError(c.t, err)
}

// expect reads until text has been seen or the connection ends.
func (c *client) expect(text string) {
	c.t.Helper()
	buf := make([]byte, 512)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for !strings.Contains(c.seen, text) {
		n, err := c.conn.Read(buf)
		c.seen += string(FilterIAC(buf[:n]))
		if err != nil {
			break
		}
	}
	require.Contains(c.t, c.seen, text)
}

func TestAcceptor_EchoSession(t *testing.T) {
	h := &echoHandler{}
	acc := startAcceptor(t, h, 0)

	c := dial(t, acc)
	c.send("roll")
	c.expect("echo: roll")
	c.send("quit")
	c.expect("bye")

	require.Eventually(t, func() bool { return acc.ActiveSessions() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), h.sessions.Load())
}

func TestAcceptor_NegotiatesFirst(t *testing.T) {
	acc := startAcceptor(t, &echoHandler{}, 0)
	c := dial(t, acc)

	buf := make([]byte, 3)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := c.conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{IAC, WILL, OptSuppressGoAhead}, buf)
}

func TestAcceptor_ManyClients(t *testing.T) {
	h := &echoHandler{}
	acc := startAcceptor(t, h, 0)

	clients := make([]*client, 4)
	for i := range clients {
		clients[i] = dial(t, acc)
		clients[i].send("hello")
		clients[i].expect("echo: hello")
	}
	assert.Equal(t, len(clients), acc.ActiveSessions())
	for _, c := range clients {
		c.send("quit")
		c.expect("bye")
	}
	require.Eventually(t, func() bool { return acc.ActiveSessions() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(len(clients)), h.sessions.Load())
}

func TestAcceptor_RefusesBeyondMaxConnections(t *testing.T) {
	h := &parkedHandler{started: make(chan struct{}, 4)}
	acc := startAcceptor(t, h, 1)

	dial(t, acc)
	<-h.started

	extra := dial(t, acc)
	extra.expect(MsgServerFull)
	assert.Equal(t, 1, acc.ActiveSessions())
}

func TestAcceptor_StopReleasesParkedSessions(t *testing.T) {
	h := &parkedHandler{started: make(chan struct{}, 1)}
	acc := startAcceptor(t, h, 0)

	c := dial(t, acc)
	select {
	case <-h.started:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not start")
	}

	stopped := make(chan struct{})
	go func() {
		acc.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop waited on a session blocked in ReadLine")
	}
	c.expect(MsgShuttingDown)
	assert.Equal(t, 0, acc.ActiveSessions())
	assert.False(t, acc.IsRunning())
}

func TestAcceptor_StopBeforeListen(t *testing.T) {
	acc := NewAcceptor(config.TelnetConfig{Host: "127.0.0.1"}, &echoHandler{}, zaptest.NewLogger(t))
	acc.Stop()
	assert.NoError(t, acc.ListenAndServe())
	assert.False(t, acc.IsRunning())
}
