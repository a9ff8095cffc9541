package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// enterGallery godoc
// @Summary Show the catalog with the user's claimed cards
// @Tags gallery
// @Produce json
// @Success 200 {object} service.GalleryPage
// @Router /memories [get]
func (h *Handler) enterGallery(c *gin.Context) {
	page, err := h.gallery.EnterGallery(c.Request.Context(), userID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) toggleGalleryFlip(c *gin.Context) {
	page, err := h.gallery.ToggleGalleryFlip(c.Request.Context(), userID(c), c.Param("cardId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
