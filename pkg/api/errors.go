package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/riverrun/agentstream/pkg/driver"
	"github.com/riverrun/agentstream/pkg/messagestore"
)

// mapStoreError maps messagestore errors to HTTP error responses.
func mapStoreError(err error) *echo.HTTPError {
	if errors.Is(err, messagestore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}

	var scopeErr *driver.ScopeViolation
	if errors.As(err, &scopeErr) {
		return echo.NewHTTPError(http.StatusConflict, scopeErr.Error())
	}

	slog.Error("api: unexpected store error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
