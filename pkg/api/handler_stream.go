package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/riverrun/agentstream/pkg/events"
)

// streamHandler handles GET
// /api/v1/chats/{chat_id}/messages/{message_id}/stream via §6's SSE
// contract: one poll-loop watcher per connection, honoring Last-Event-ID
// for strict resume.
func (s *Server) streamHandler(c *echo.Context) error {
	messageID := c.Param("message_id")
	if messageID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message_id is required")
	}

	sinceID := c.Request().Header.Get("Last-Event-ID")
	if since := c.QueryParam("since_id"); since != "" {
		sinceID = since
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)

	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	push := func(_ context.Context, ev events.Event) error {
		if err := writeSSEFrame(resp, ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	// Per §4.4, a connected client counts against the task's watcher set
	// for its whole lifetime: this is what lets unregister-last-watcher
	// reap a completed task immediately instead of waiting for the
	// periodic cleanup sweep.
	watcherID := uuid.NewString()
	s.registry.RegisterWatcher(messageID, watcherID)
	defer s.registry.UnregisterWatcher(messageID, watcherID)

	err := s.watcher.Watch(c.Request().Context(), messageID, sinceID, push)
	if err != nil && c.Request().Context().Err() == nil {
		s.log.Warn("api: stream ended with error", "message_id", messageID, "error", err)
	}
	return nil
}

func writeSSEFrame(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", ev.Type, ev.ID, data)
	return err
}
