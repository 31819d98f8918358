package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/riverrun/agentstream/pkg/driver"
)

// CreateChatResponse is returned by POST /api/v1/chats.
type CreateChatResponse struct {
	ChatID string `json:"chat_id"`
}

// createChatHandler handles POST /api/v1/chats.
func (s *Server) createChatHandler(c *echo.Context) error {
	var req CreateChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	chat, err := s.messages.CreateChat(c.Request().Context(), req.UserID)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, CreateChatResponse{ChatID: chat.ID})
}

// CreateMessageResponse is returned by POST
// /api/v1/chats/{chat_id}/messages.
type CreateMessageResponse struct {
	MessageID string `json:"message_id"`
	StreamURL string `json:"stream_url"`
}

// createMessageHandler handles POST /api/v1/chats/{chat_id}/messages. It
// creates the user+assistant message pair, spawns the driver through the
// registry (so the agent run is shielded from this request's context), and
// returns immediately — the caller follows up with the stream endpoint.
func (s *Server) createMessageHandler(c *echo.Context) error {
	chatID := c.Param("chat_id")
	if chatID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chat_id is required")
	}

	var req CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	chat, err := s.messages.GetChat(c.Request().Context(), chatID)
	if err != nil {
		return mapStoreError(err)
	}

	_, assistantMsg, err := s.messages.CreateMessagePair(c.Request().Context(), chat.ID, req.Content)
	if err != nil {
		return mapStoreError(err)
	}

	tenderID, _ := req.Metadata["tender_id"].(string)
	in := driver.Input{
		ChatID:    chat.ID,
		MessageID: assistantMsg.ID,
		Query:     req.Content,
		TenderID:  tenderID,
	}
	s.registry.StartAgent(assistantMsg.ID, chat.ID, func(ctx context.Context) {
		s.driver.Run(ctx, in)
	})

	return c.JSON(http.StatusCreated, CreateMessageResponse{
		MessageID: assistantMsg.ID,
		StreamURL: "/api/v1/chats/" + chat.ID + "/messages/" + assistantMsg.ID + "/stream",
	})
}
