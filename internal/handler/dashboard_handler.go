package handler

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed static/dashboard.html
var dashboardHTML []byte

// DashboardHandler serves the single-page dashboard that drives the API.
func DashboardHandler(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, dashboardHTML)
}
