package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkordes/lostfound/backend/internal/domain"
	"github.com/pkordes/lostfound/backend/internal/filter"
)

// streamItems handles GET /items/stream. Each connection gets its own
// filter.Engine attached to the live feed; every recomputed projection is
// sent as an "items" event. Slow clients only ever see the latest projection.
func (s *Server) streamItems(w http.ResponseWriter, r *http.Request) {
	query, sel, err := filterParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	// The server's WriteTimeout would otherwise end the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.log.WarnContext(r.Context(), "event stream unsupported", "error", err)
		return
	}

	// onChange runs under the engine lock, so there is a single producer.
	updates := make(chan []domain.Item, 1)
	engine := filter.NewEngine(func(visible []domain.Item) {
		select {
		case <-updates:
		default:
		}
		updates <- visible
	})
	engine.SetQuery(query)
	engine.SetSelector(sel)
	// Drop the projections of the empty engine; the feed delivers the real one.
	select {
	case <-updates:
	default:
	}
	detach := engine.Attach(s.feed)
	defer detach()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case visible := <-updates:
			data, err := json.Marshal(visible)
			if err != nil {
				s.log.ErrorContext(r.Context(), "encode items event", "error", err)
				return
			}
			seq++
			if err := writeEvent(w, seq, "items", data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// writeEvent writes one Server-Sent Event. data must not contain newlines.
func writeEvent(w io.Writer, id uint64, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
