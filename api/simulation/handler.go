package simulation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/robocharge/core/sim"
	"github.com/kilianp07/robocharge/qa/scenarios"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The visualization client is served from anywhere during development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHandler wires the control surface endpoints onto a mux.
func NewHandler(c *Controller) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/run/start", c.handleStart)
	mux.HandleFunc("POST /api/run/step", c.handleStep)
	mux.HandleFunc("POST /api/run/reset", c.handleReset)
	mux.HandleFunc("POST /api/run/until", c.handleRunUntil)
	mux.HandleFunc("GET /api/run/snapshot", c.handleSnapshot)
	mux.HandleFunc("GET /api/run/stream", c.handleStream)
	mux.HandleFunc("GET /api/scenarios", handleScenarios)
	return mux
}

type startRequest struct {
	Scenario string        `json:"scenario"`
	Inline   *sim.Scenario `json:"inline,omitempty"`
}

func (c *Controller) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := c.Start(req.Scenario, req.Inline)
	if err != nil {
		status := http.StatusBadRequest
		var cfgErr *sim.ConfigError
		if !errors.As(err, &cfgErr) {
			status = http.StatusInternalServerError
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, snap)
}

func (c *Controller) handleStep(w http.ResponseWriter, r *http.Request) {
	snap, err := c.Step()
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (c *Controller) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := c.Reset()
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (c *Controller) handleRunUntil(w http.ResponseWriter, r *http.Request) {
	maxTicks := 0
	var req struct {
		MaxTicks int `json:"max_ticks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		maxTicks = req.MaxTicks
	}
	if q := r.URL.Query().Get("max_ticks"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			maxTicks = n
		}
	}
	if maxTicks <= 0 {
		maxTicks = 10000
	}
	snap, err := c.RunUntil(maxTicks)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (c *Controller) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := c.Snapshot()
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, snap)
}

// handleStream upgrades to a websocket and forwards snapshots until the
// client disconnects. A client that cannot keep up skips superseded ticks
// rather than falling further behind.
func (c *Controller) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub, cancel := c.feed.Subscribe()
	defer cancel()

	for snap := range sub {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

func handleScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, scenarios.Names())
}

func writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoRun) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
