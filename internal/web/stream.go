package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// streamInterval is how often the SSE stream re-reads the checkpoint.
const streamInterval = 2 * time.Second

// handleStream serves a Server-Sent Events stream of a run's progress.
// It polls the checkpoint store and sends a summary whenever the state
// advances. When the run reaches a terminal state it sends a "done"
// event and closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	run := r.PathValue("run")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if present

	sendDone := func(reason string) {
		fmt.Fprintf(w, "event: done\ndata: %s\n\n", reason)
		flusher.Flush()
	}

	send := func(sum runSummary) {
		data, _ := json.Marshal(sum)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	lastIteration := -1

	tick := time.NewTicker(streamInterval)
	defer tick.Stop()

	for {
		state, err := s.store.Load(run)
		if err != nil {
			sendDone("run not found")
			return
		}

		if state.Iteration != lastIteration {
			lastIteration = state.Iteration
			send(summarize(run, state))
		}

		if state.Terminal != "" && state.Terminal != review.TerminalNone {
			sendDone(string(state.Terminal))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
		}
	}
}
