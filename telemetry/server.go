package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// subscriber channels are buffered; a subscriber that falls behind misses lines
const subscriberBuffer = 64

// Server accepts telemetry connections and relays every received line to its
// subscribers.
type Server struct {
	logger *slog.Logger

	mu          sync.Mutex
	listener    net.Listener
	subscribers map[chan string]struct{}
	ready       chan struct{}
}

func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:      logger,
		subscribers: make(map[chan string]struct{}),
		ready:       make(chan struct{}),
	}
}

func (s *Server) Subscribe() <-chan string {
	ch := make(chan string, subscriberBuffer)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) Unsubscribe(ch <-chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers {
		if sub == ch {
			delete(s.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Addr blocks until the server listens and returns its address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ready:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr(), nil
}

// ListenAndServe accepts connections on address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("telemetry: could not listen on %s: %w", address, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	close(s.ready)
	s.logger.Info("mission control listening", "address", l.Addr().String())

	var wg sync.WaitGroup
	conns := make(map[net.Conn]struct{})
	var connsMu sync.Mutex
	go func() {
		<-ctx.Done()
		_ = l.Close()
		connsMu.Lock()
		for c := range conns {
			_ = c.Close()
		}
		connsMu.Unlock()
	}()
	defer wg.Wait()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("telemetry: accept failed: %w", err)
		}
		connsMu.Lock()
		conns[conn] = struct{}{}
		connsMu.Unlock()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(conn)
			connsMu.Lock()
			delete(conns, conn)
			connsMu.Unlock()
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	s.logger.Info("client connected", "remote", remote)
	defer func() {
		_ = conn.Close()
		s.logger.Info("client disconnected", "remote", remote)
	}()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		s.logger.Debug("received", "remote", remote, "line", line)
		s.broadcast(line)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("connection error", "remote", remote, "error", err)
	}
}

func (s *Server) broadcast(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers {
		select {
		case sub <- line:
		default:
			s.logger.Warn("subscriber too slow, dropping line")
		}
	}
}
