package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/health"
)

// GetHealth handles GET /health, aggregating every registered probe under
// the dominance order internal/health implements.
func (h *Handlers) GetHealth(c echo.Context) error {
	report := health.Aggregate(c.Request().Context(), h.Probes, h.HealthTimeout)
	return c.JSON(http.StatusOK, report)
}
