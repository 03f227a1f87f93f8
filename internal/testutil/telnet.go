// Package testutil provides helpers for driving the Telnet server from tests.
package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/ludo/internal/config"
	"github.com/cory-johannsen/ludo/internal/frontend/telnet"
)

// DefaultTimeout bounds each ReadUntil wait.
const DefaultTimeout = 3 * time.Second

// StartServer runs a Telnet acceptor for handler on a random loopback port.
// The acceptor is stopped on test cleanup.
//
// Postcondition: Returns the listening "host:port", or fails the test.
func StartServer(t *testing.T, handler telnet.SessionHandler) string {
	t.Helper()
	cfg := config.TelnetConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	acc := telnet.NewAcceptor(cfg, handler, zaptest.NewLogger(t))
	go func() { _ = acc.ListenAndServe() }()

	deadline := time.After(2 * time.Second)
	for !acc.IsRunning() || acc.Addr() == "" {
		select {
		case <-deadline:
			t.Fatal("acceptor did not start in time")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Cleanup(acc.Stop)
	return acc.Addr()
}

// TelnetClient is a simple Telnet test client for integration testing.
//
// It keeps unread output across ReadUntil calls and matches against text with
// ANSI styling removed.
type TelnetClient struct {
	conn   net.Conn
	t      *testing.T
	buffer string
}

// NewTelnetClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &TelnetClient{conn: conn, t: t}
}

// ReadUntil reads until substr appears in the unstyled output or
// DefaultTimeout passes.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns the output up to and including the match; later
// output stays buffered for the next call.
func (c *TelnetClient) ReadUntil(substr string) string {
	c.t.Helper()
	if out, ok := c.take(substr); ok {
		return out
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout))
	tmp := make([]byte, 4096)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			c.buffer = telnet.StripANSI(c.buffer + string(tmp[:n]))
			if out, ok := c.take(substr); ok {
				return out
			}
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, c.buffer, err)
		}
	}
}

func (c *TelnetClient) take(substr string) (string, bool) {
	idx := strings.Index(c.buffer, substr)
	if idx < 0 {
		return "", false
	}
	end := idx + len(substr)
	out := c.buffer[:end]
	c.buffer = c.buffer[end:]
	return out, true
}

// Send writes a line of text to the server, appending \r\n.
//
// Precondition: text should not contain trailing newline characters.
// Postcondition: text + \r\n is written to the connection.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	c.conn.Close()
}
