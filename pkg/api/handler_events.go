package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

const maxEventsPerReplay = 1000

// listEventsHandler handles GET /api/v1/messages/{message_id}/events. It is
// a plain JSON replay of the durable event log, distinct from the SSE
// stream endpoint: useful for polling clients and for tests.
func (s *Server) listEventsHandler(c *echo.Context) error {
	messageID := c.Param("message_id")
	if messageID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message_id is required")
	}
	sinceID := c.QueryParam("since")

	evs, err := s.events.GetEvents(c.Request().Context(), messageID, sinceID, maxEventsPerReplay)
	if err != nil {
		return mapStoreError(err)
	}

	out := make([]any, len(evs))
	for i, ev := range evs {
		out[i] = ev
	}
	return c.JSON(http.StatusOK, EventsResponse{
		MessageID: messageID,
		Events:    out,
		Count:     len(out),
	})
}

