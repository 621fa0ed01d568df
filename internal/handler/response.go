package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FooledKiwi/busease/internal/geo"
	"github.com/FooledKiwi/busease/internal/service"
)

// envelope wraps every response body.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Message: message, Data: gin.H{}})
}

// respondError maps an engine error onto the envelope. Domain failures keep
// HTTP 200 with success=false; anything else is logged and reported as 500.
func respondError(c *gin.Context, err error) {
	var qe *service.QueryError
	if errors.As(err, &qe) {
		if errors.Is(qe, service.ErrInvalidLocation) {
			respondFail(c, http.StatusBadRequest, qe.Message)
			return
		}
		respondFail(c, http.StatusOK, qe.Message)
		return
	}
	log.Printf("handler: %s %s request=%s: %v",
		c.Request.Method, c.FullPath(), service.RequestIDFromContext(c.Request.Context()), err)
	respondFail(c, http.StatusInternalServerError, "Internal server error")
}

// parseRequiredFloat extracts a required float64 query parameter.
// On failure it writes a 400 response and returns (0, false).
func parseRequiredFloat(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		respondFail(c, http.StatusBadRequest, name+" query parameter is required")
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, name+" must be a valid number")
		return 0, false
	}
	return v, true
}

// requiredQuery extracts a required, non-empty string query parameter.
func requiredQuery(c *gin.Context, name string) (string, bool) {
	v := c.Query(name)
	if v == "" {
		respondFail(c, http.StatusBadRequest, name+" query parameter is required")
		return "", false
	}
	return v, true
}

type locationJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func toLocationJSON(p *geo.Point) *locationJSON {
	if p == nil {
		return nil
	}
	return &locationJSON{Lat: p.Lat, Lng: p.Lng}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
