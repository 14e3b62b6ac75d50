package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-backend/services"
)

type SearchHandler struct {
	svc *services.DirectoryService
}

func NewSearchHandler(svc *services.DirectoryService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search looks patients and doctors up in the directory index.
func (h *SearchHandler) Search(c *gin.Context) {
	entries, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
