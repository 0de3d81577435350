package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/lucasnoah/reviewloop/internal/db"
	"github.com/lucasnoah/reviewloop/internal/review"
	"github.com/lucasnoah/reviewloop/internal/store"
)

// Server is the read-only status server. It reads checkpointed loop
// state and the event log; it never mutates either.
type Server struct {
	store *store.Store
	db    *db.DB
	port  int
}

// NewServer creates a Server.
func NewServer(st *store.Store, database *db.DB, port int) *Server {
	return &Server{store: st, db: database, port: port}
}

// Handler returns the server's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{run}", s.handleRun)
	mux.HandleFunc("GET /api/runs/{run}/events", s.handleEvents)
	mux.HandleFunc("GET /api/runs/{run}/stream", s.handleStream)
	return mux
}

// ListenAndServe starts the server on the configured port.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("reviewloop status server listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// runSummary is the list-view shape for one checkpointed run.
type runSummary struct {
	Run        string          `json:"run"`
	Iteration  int             `json:"iteration"`
	Terminal   review.Terminal `json:"terminal"`
	QueueLen   int             `json:"queue_len"`
	Unresolved int             `json:"unresolved"`
}

func summarize(run string, state *review.LoopState) runSummary {
	sum := runSummary{
		Run:       run,
		Iteration: state.Iteration,
		Terminal:  state.Terminal,
		QueueLen:  len(state.Queue),
	}
	for _, e := range state.Queue {
		if !e.Status.Resolved() {
			sum.Unresolved++
		}
	}
	return sum
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		state, err := s.store.Load(run)
		if err != nil {
			continue
		}
		summaries = append(summaries, summarize(run, state))
	}
	writeJSON(w, summaries)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.Load(r.PathValue("run"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, state)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.db.IterationEvents(r.PathValue("run"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []db.IterationEvent{}
	}
	writeJSON(w, events)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
