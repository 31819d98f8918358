package api

import "github.com/riverrun/agentstream/pkg/database"

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string                 `json:"status"`
	Version      string                 `json:"version"`
	DBHost       string                 `json:"db_host"`
	WakeEnabled  bool                   `json:"wake_enabled"`
	EventTTLDays float64                `json:"event_ttl_days"`
	ActiveAgents int                    `json:"active_agents"`
	Database     *database.HealthStatus `json:"database,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// EventsResponse is returned by GET /api/v1/messages/{message_id}/events.
type EventsResponse struct {
	MessageID string `json:"message_id"`
	Events    []any  `json:"events"`
	Count     int    `json:"count"`
}
