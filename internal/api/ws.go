package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/IshaanNene/QuizGoat/internal/engine"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

var upgrader = websocket.Upgrader{
	// The API already answers any origin.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const wsWriteTimeout = 5 * time.Second

// handleJobStream pushes a job snapshot whenever it changes, polling the
// registry every ProgressInterval. A missing job is reported once and the
// stream ends.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := s.cfg.Server.ProgressInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last engine.Job
	sent := false
	for {
		job, err := s.jobs.Get(ctx, jobID)
		switch {
		case errors.Is(err, types.ErrJobNotFound):
			s.writeWS(conn, notFound)
			return
		case err != nil:
			if ctx.Err() == nil {
				s.logger.Warn("job stream read failed", "job_id", jobID, "error", err)
			}
		case !sent || job != last:
			if err := s.writeWS(conn, job); err != nil {
				return
			}
			last, sent = job, true
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}
