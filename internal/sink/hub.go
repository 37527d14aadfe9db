package sink

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"
)

// DefaultClientBuffer is the number of events queued per UI client before
// further events are dropped for that client.
const DefaultClientBuffer = 64

// CommandToggleJetway is the UI request for a manual jetway toggle.
const CommandToggleJetway = "toggle_jetway"

const maxDecodeErrorsPerConn = 8

// Command is a UI request frame.
type Command struct {
	Command string `json:"command"`
}

// Hub broadcasts events to websocket UI clients and forwards their commands.
//
// Routes: /up answers health checks, /events is the websocket endpoint.
// Emit never blocks; a client whose buffer is full misses the event.
type Hub struct {
	buffer int

	mu        sync.Mutex
	clients   map[*hubClient]struct{}
	onCommand func(Command)
	dropped   int64
}

type hubClient struct {
	out chan []byte
}

// NewHub creates a hub. A buffer of zero or less uses DefaultClientBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Hub{buffer: buffer, clients: make(map[*hubClient]struct{})}
}

// OnCommand registers the callback for UI commands. It runs on the
// client's read goroutine.
func (h *Hub) OnCommand(fn func(Command)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCommand = fn
}

// Emit implements Sink.
func (h *Hub) Emit(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Debug("hub: marshal event", "event", ev.Name, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.out <- data:
		default:
			h.dropped++
		}
	}
}

// Clients returns the number of connected UI clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many per-client deliveries were dropped.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Handler returns the hub's HTTP routes.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	ws := websocket.Handler(h.serve)
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ws.ServeHTTP(w, r)
	})
	return mux
}

func (h *Hub) serve(conn *websocket.Conn) {
	c := &hubClient{out: make(chan []byte, h.buffer)}
	h.add(c)
	done := make(chan struct{})
	defer func() {
		h.remove(c)
		close(done)
		_ = conn.Close()
	}()

	go func() {
		for {
			select {
			case data := <-c.out:
				if err := websocket.Message.Send(conn, string(data)); err != nil {
					slog.Debug("hub: client write failed", "error", err)
					_ = conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	decodeErrors := 0
	for {
		var cmd Command
		if err := websocket.JSON.Receive(conn, &cmd); err != nil {
			if errors.Is(err, io.EOF) || decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				return
			}
			decodeErrors++
			continue
		}
		decodeErrors = 0
		h.dispatch(cmd)
	}
}

func (h *Hub) dispatch(cmd Command) {
	h.mu.Lock()
	fn := h.onCommand
	h.mu.Unlock()

	switch cmd.Command {
	case CommandToggleJetway:
		if fn != nil {
			fn(cmd)
		}
	default:
		slog.Debug("hub: unknown command", "command", cmd.Command)
	}
}

func (h *Hub) add(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Debug("hub: client connected", "clients", len(h.clients))
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	slog.Debug("hub: client disconnected", "clients", len(h.clients))
}
