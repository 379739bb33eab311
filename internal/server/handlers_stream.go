package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/votepulse/internal/errors"
	"github.com/pscheid92/votepulse/internal/metrics"
)

// handleVoteStream serves the Server-Sent Events feed of vote update
// notifications. The first frame confirms the connection; each subsequent
// frame tells the client which competition changed so it can re-fetch
// scores. Comment heartbeats keep proxies from closing idle streams.
func (s *Server) handleVoteStream(c echo.Context) error {
	if s.sseClients.Load() >= int64(s.config.MaxClientsPerStream) {
		metrics.StreamClientsRejectedTotal.WithLabelValues("capacity").Inc()
		return apperrors.UnavailableError("too many active streams, try again later", nil)
	}

	subscription, err := s.subscriber.Subscribe(c.Request().Context())
	if err != nil {
		return apperrors.UnavailableError("live updates unavailable", err)
	}
	defer func() {
		if err := subscription.Close(); err != nil {
			slog.Warn("failed to close stream subscription", "error", err)
		}
	}()

	count := s.sseClients.Add(1)
	metrics.StreamClientsCurrent.WithLabelValues("sse").Set(float64(count))
	defer func() {
		metrics.StreamClientsCurrent.WithLabelValues("sse").Set(float64(s.sseClients.Add(-1)))
	}()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	if err := writeSSEFrame(res, []byte(`{"type":"connected"}`)); err != nil {
		return nil
	}

	heartbeat := s.clock.NewTicker(s.config.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case msg, ok := <-subscription.Messages():
			if !ok {
				return nil
			}
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Error("failed to marshal stream event", "error", err)
				continue
			}
			if err := writeSSEFrame(res, data); err != nil {
				return nil
			}
			metrics.StreamEventsDeliveredTotal.WithLabelValues("sse").Inc()

		case <-heartbeat.Chan():
			// Comment line; clients ignore it, proxies see traffic
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()

		case <-ctx.Done():
			return nil
		}
	}
}

func writeSSEFrame(res *echo.Response, data []byte) error {
	if _, err := fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
