package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-backend/models"
)

const (
	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02T15:04:05"
)

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body for err. Store failures are also
// attached to the gin context so ErrorHandler reports them.
func respondError(c *gin.Context, err error) {
	kind := models.KindOf(err)
	message := "internal error"
	var e *models.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	if kind == models.KindStore {
		_ = c.Error(err)
	}
	c.JSON(statusFor(kind), gin.H{"error": message, "kind": kind})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "kind": models.KindValidation})
}

// pathID reads the :id parameter. It writes a 400 and returns false when the
// value is not a positive integer.
func pathID(c *gin.Context, entity string) (uint, bool) {
	id, err := parseUint(c.Param("id"))
	if err != nil || id == 0 {
		badRequest(c, fmt.Sprintf("invalid %s ID format", entity))
		return 0, false
	}
	return id, true
}

func parseUint(s string) (uint, error) {
	var id uint
	_, err := fmt.Sscanf(s, "%d", &id)
	if err == nil && fmt.Sprint(id) != s {
		err = fmt.Errorf("invalid unsigned integer %q", s)
	}
	return id, err
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func formatDateTime(t time.Time) string {
	return t.Format(dateTimeFormat)
}
