package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/config"
)

// Messages written to clients by the acceptor itself.
const (
	MsgServerFull     = "Every seat in the house is taken. Try again in a little while."
	MsgShuttingDown   = "Server shutting down. Thanks for playing!"
	negotiationFailed = "telnet negotiation failed"
)

var (
	errStopped = errors.New("acceptor stopped")
	errFull    = errors.New("connection limit reached")
)

// SessionHandler runs one client connection until it disconnects.
// The context is cancelled when the acceptor stops.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor listens for Telnet clients and hands each one to a SessionHandler
// on its own goroutine.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	running  bool
	conns    map[*Conn]uint64
	nextID   uint64
}

// NewAcceptor creates an Acceptor. It does not listen until ListenAndServe.
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[*Conn]uint64),
	}
}

// ListenAndServe accepts clients until Stop is called.
//
// Precondition: The acceptor has not been started before.
// Postcondition: Returns nil after Stop, or the listen error.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("telnet acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Int("max_connections", a.cfg.MaxConnections),
		zap.Duration("startup", time.Since(start)),
	)

	for {
		raw, err := listener.Accept()
		if err != nil {
			if a.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}
		a.wg.Add(1)
		go a.serve(raw)
	}
}

func (a *Acceptor) serve(raw net.Conn) {
	defer a.wg.Done()
	start := time.Now()
	addr := raw.RemoteAddr().String()
	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)

	id, err := a.admit(conn)
	if err != nil {
		a.logger.Info("connection refused", zap.String("remote_addr", addr), zap.Error(err))
		if errors.Is(err, errFull) {
			_ = conn.WriteLine(Colorize(BrightYellow, MsgServerFull))
		}
		_ = conn.Close()
		return
	}
	defer a.release(conn)

	logger := a.logger.With(zap.Uint64("conn", id), zap.String("remote_addr", addr))
	logger.Info("client connected")

	if err := conn.Negotiate(); err != nil {
		logger.Warn(negotiationFailed, zap.Error(err))
		return
	}

	err = a.handler.HandleSession(a.ctx, conn)
	fields := []zap.Field{zap.Duration("duration", time.Since(start))}
	if err != nil {
		logger.Debug("session ended", append(fields, zap.Error(err))...)
		return
	}
	logger.Info("session ended cleanly", fields...)
}

// admit registers conn and assigns it an id, unless the acceptor has stopped
// or MaxConnections clients are already connected.
func (a *Acceptor) admit(conn *Conn) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return 0, errStopped
	}
	if a.cfg.MaxConnections > 0 && len(a.conns) >= a.cfg.MaxConnections {
		return 0, errFull
	}
	a.nextID++
	a.conns[conn] = a.nextID
	return a.nextID, nil
}

func (a *Acceptor) release(conn *Conn) {
	a.mu.Lock()
	delete(a.conns, conn)
	a.mu.Unlock()
	_ = conn.Close()
}

// Stop closes the listener, tells every connected client the server is going
// down, closes their connections and waits for their sessions to return.
//
// Postcondition: No session goroutine is running. Later calls are no-ops.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	a.cancel()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	_ = a.listener.Close()
	for conn := range a.conns {
		_ = conn.WriteLine(Colorize(BrightYellow, MsgShuttingDown))
		_ = conn.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("telnet acceptor stopped")
}

// ActiveSessions returns the number of connected clients.
func (a *Acceptor) ActiveSessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}

// Addr returns the bound "host:port", or "" before the listener is up.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// IsRunning reports whether the acceptor is accepting clients.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
