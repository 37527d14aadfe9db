package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jackwaller57/simpa/internal/telemetry"
)

// Cue is one scripted host message, sent After the previous one.
type Cue struct {
	After time.Duration
	Msg   telemetry.Message
}

// Server is a development telemetry host. Every subscribed client receives
// the same scripted feed, then a quit unless the script ends with one.
type Server struct {
	script []Cue
	speed  float64

	mu    sync.Mutex
	conns map[*Conn]struct{}
	wg    sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSpeed scales script delays; 2 plays twice as fast. Zero or less plays
// without delays.
func WithSpeed(speed float64) ServerOption {
	return func(s *Server) { s.speed = speed }
}

// NewServer creates a host that plays script to each client.
func NewServer(script []Cue, opts ...ServerOption) *Server {
	s := &Server{script: script, speed: 1, conns: make(map[*Conn]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe listens on addr and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts clients on ln until ctx ends, then closes every open
// connection and waits for their feeds to stop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	slog.Info("telemetry host listening", "addr", ln.Addr().String(), "cues", len(s.script))

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.closeAll()
	})
	defer stop()
	defer s.wg.Wait()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		conn := NewConn(nc)
		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			defer conn.Close()
			if err := s.handle(ctx, conn); err != nil {
				slog.Warn("client feed ended", "remote", nc.RemoteAddr().String(), "error", err)
			}
		}()
	}
}

func (s *Server) track(c *Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// handle answers the subscription and plays the feed.
func (s *Server) handle(ctx context.Context, conn *Conn) error {
	f, err := conn.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("await subscribe: %w", err)
	}
	if f.Kind != KindSubscribe {
		conn.Send(Frame{Kind: KindNack, Message: "expected subscribe, got " + f.Kind.String()})
		return fmt.Errorf("unexpected %s frame", f.Kind)
	}
	if len(f.Definitions) == 0 {
		conn.Send(Frame{Kind: KindNack, Message: "no definitions"})
		return errors.New("subscribe without definitions")
	}
	if err := conn.Send(Frame{Kind: KindAck}); err != nil {
		return err
	}
	slog.Info("client subscribed", "client", f.Message, "definitions", len(f.Definitions))

	quitSent := false
	for _, cue := range s.script {
		if err := s.wait(ctx, cue.After); err != nil {
			return nil
		}
		frame := FrameOf(cue.Msg)
		if frame.Kind == 0 {
			continue
		}
		if err := conn.Send(frame); err != nil {
			return err
		}
		quitSent = frame.Kind == KindQuit
		if quitSent {
			break
		}
	}
	if !quitSent {
		return conn.Send(Frame{Kind: KindQuit})
	}
	return nil
}

func (s *Server) wait(ctx context.Context, d time.Duration) error {
	if s.speed <= 0 || d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(float64(d) / s.speed))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
