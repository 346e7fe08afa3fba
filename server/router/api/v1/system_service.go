package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Cache   string `json:"cache"`
}

// Healthz reports liveness. A cache outage degrades the cache field
// but never the status, since every endpoint keeps serving without it.
func (s *APIV1Service) Healthz(c echo.Context) error {
	cacheState := "available"
	if err := s.Cache.Manager().Ping(c.Request().Context()); err != nil {
		cacheState = "unavailable"
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.Profile.Version,
		Cache:   cacheState,
	})
}
