// Package stream serves a running simulation over HTTP: an info document,
// the latest full frame and a websocket feed of per-tick cell diffs.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/sim"
)

const clientBuffer = 64

type client struct {
	id  string
	out chan []byte
}

// Hub collects cell changes from the simulation (sim.CellSink) and fans
// frames out to websocket clients (sim.Observer). Slow clients are dropped
// rather than allowed to stall the run.
type Hub struct {
	name     string
	log      *slog.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.Mutex
	cells   map[game.Point]game.RenderKind
	pending []Cell
	last    Frame
	info    Info
	clients map[*client]struct{}
}

func NewHub(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name: name,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		cells:   make(map[game.Point]game.RenderKind),
		clients: make(map[*client]struct{}),
		info:    Info{Name: name},
	}
}

// OnCellChanged implements sim.CellSink.
func (h *Hub) OnCellChanged(p game.Point, kind game.RenderKind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if kind == game.RenderEmpty {
		delete(h.cells, p)
	} else {
		h.cells[p] = kind
	}
	h.pending = append(h.pending, Cell{X: p.X, Y: p.Y, Kind: kind.String()})
}

func (h *Hub) OnStart(state *game.GameState) {
	ids := make([]string, len(state.Snakes))
	for i := range state.Snakes {
		ids[i] = state.Snakes[i].ID
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.info = Info{
		Name:   h.name,
		Width:  state.Board.Width,
		Height: state.Board.Height,
		Snakes: ids,
		Goals:  state.Goals.Len(),
		Turn:   state.Turn,
	}
	h.publishLocked(Frame{
		Type:    "tick",
		Turn:    state.Turn,
		Chasing: state.Goals.Index(),
		Eaten:   state.Goals.Index(),
		Goal:    currentGoal(state),
		Snakes:  snakeFrames(state, nil),
	})
}

func (h *Hub) OnTick(state *game.GameState, res sim.TickResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info.Turn = res.Turn
	f := Frame{
		Type:    "tick",
		Turn:    res.Turn,
		Chasing: res.Chasing,
		Eaten:   state.Goals.Index(),
		Goal:    currentGoal(state),
		Snakes:  snakeFrames(state, res.Agents),
	}
	if res.Won {
		f.Outcome = sim.OutcomeWon.String()
	} else if res.Collided {
		f.Outcome = sim.OutcomeCollided.String()
	}
	h.publishLocked(f)
}

func (h *Hub) OnFinish(res sim.RunResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info.Finished = true
	h.info.Outcome = res.Outcome.String()
	h.publishLocked(Frame{
		Type:    "finish",
		Turn:    res.Turns,
		Chasing: h.last.Chasing,
		Eaten:   res.GoalsEaten,
		Goal:    h.last.Goal,
		Snakes:  h.last.Snakes,
		Outcome: res.Outcome.String(),
	})
}

// publishLocked stamps f with the pending cell diff, remembers it as the
// latest frame and sends it to every client.
func (h *Hub) publishLocked(f Frame) {
	f.Width, f.Height = h.info.Width, h.info.Height
	f.Goals = h.info.Goals
	f.Cells = h.pending
	if f.Cells == nil {
		f.Cells = []Cell{}
	}
	h.pending = nil
	h.last = f

	if len(h.clients) == 0 {
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		h.log.Error("frame encode failed", "turn", f.Turn, "error", err)
		return
	}
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
			h.log.Warn("dropping slow stream client", "client", c.id, "turn", f.Turn)
			delete(h.clients, c)
			close(c.out)
		}
	}
}

// Keyframe is the latest frame with every non-empty cell in place of the
// diff.
func (h *Hub) Keyframe() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keyframeLocked()
}

func (h *Hub) keyframeLocked() Frame {
	f := h.last
	f.Type = "keyframe"
	f.Width, f.Height, f.Goals = h.info.Width, h.info.Height, h.info.Goals
	f.Cells = make([]Cell, 0, len(h.cells))
	for p, k := range h.cells {
		f.Cells = append(f.Cells, Cell{X: p.X, Y: p.Y, Kind: k.String()})
	}
	sort.Slice(f.Cells, func(i, j int) bool {
		if f.Cells[i].Y != f.Cells[j].Y {
			return f.Cells[i].Y < f.Cells[j].Y
		}
		return f.Cells[i].X < f.Cells[j].X
	})
	return f
}

// Info is what GET / serves.
func (h *Hub) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	info := h.info
	info.Snakes = append([]string(nil), h.info.Snakes...)
	info.Clients = len(h.clients)
	return info
}

// Handler routes GET /, GET /state and GET /ws.
func (h *Hub) Handler() http.Handler {
	r := way.NewRouter()
	r.HandleFunc(http.MethodGet, "/", h.handleInfo)
	r.HandleFunc(http.MethodGet, "/state", h.handleState)
	r.HandleFunc(http.MethodGet, "/ws", h.handleWS)
	return r
}

func (h *Hub) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Info())
}

func (h *Hub) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Keyframe())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	c := &client{id: fmt.Sprintf("c%d", h.nextID.Add(1)), out: make(chan []byte, clientBuffer)}

	// The keyframe is queued under the same lock that registers the client,
	// so no diff can slip in between.
	h.mu.Lock()
	key, err := json.Marshal(h.keyframeLocked())
	if err != nil {
		h.mu.Unlock()
		h.log.Error("keyframe encode failed", "error", err)
		return
	}
	c.out <- key
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("stream client connected", "client", c.id, "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.out)
		}
		h.mu.Unlock()
		h.log.Info("stream client disconnected", "client", c.id)
	}()

	// Reader: clients send nothing we use, but reading notices the close.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case <-r.Context().Done():
			return
		case b, ok := <-c.out:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"), time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}

// Serve runs the HTTP server on addr until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	h.log.Info("stream listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
