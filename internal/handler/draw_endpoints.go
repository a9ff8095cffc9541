package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cardami/internal/models"
	"cardami/internal/service"
)

func (h *Handler) respondDraw(c *gin.Context, page service.DrawPage, err error) {
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDrawPageResponse(page, h.cards.Animation()))
}

func positionParam(c *gin.Context) (int, bool) {
	pos, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		handleServiceError(c, models.ErrInvalidPosition)
		return 0, false
	}
	return pos, true
}

// enterDrawPage godoc
// @Summary Start a draw page visit and deal cards
// @Tags draw
// @Produce json
// @Success 200 {object} drawPageResponse
// @Success 204 "Session not resolved yet"
// @Success 303 "Not signed in"
// @Failure 503 {object} models.ErrorResponse
// @Router /home [get]
func (h *Handler) enterDrawPage(c *gin.Context) {
	page, err := h.cards.EnterDrawPage(c.Request.Context(), userID(c))
	h.respondDraw(c, page, err)
}

func (h *Handler) leaveDrawPage(c *gin.Context) {
	if err := h.cards.LeaveDrawPage(c.Request.Context(), userID(c)); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// flip godoc
// @Summary Flip a dealt card
// @Tags draw
// @Produce json
// @Param position path int true "Card position"
// @Success 200 {object} drawPageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /home/flip/{position} [post]
func (h *Handler) flip(c *gin.Context) {
	pos, ok := positionParam(c)
	if !ok {
		return
	}
	page, err := h.cards.Flip(c.Request.Context(), userID(c), pos)
	h.respondDraw(c, page, err)
}

// shuffle godoc
// @Summary Replace the draw once every card is flipped
// @Tags draw
// @Produce json
// @Success 200 {object} drawPageResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /home/shuffle [post]
func (h *Handler) shuffle(c *gin.Context) {
	page, err := h.cards.Shuffle(c.Request.Context(), userID(c))
	h.respondDraw(c, page, err)
}

func (h *Handler) openClaim(c *gin.Context) {
	pos, ok := positionParam(c)
	if !ok {
		return
	}
	page, err := h.cards.OpenClaim(c.Request.Context(), userID(c), pos)
	h.respondDraw(c, page, err)
}

func (h *Handler) editClaim(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	page, err := h.cards.EditClaim(c.Request.Context(), userID(c), req.Draft)
	h.respondDraw(c, page, err)
}

func (h *Handler) closeClaim(c *gin.Context) {
	page, err := h.cards.CloseClaim(c.Request.Context(), userID(c))
	h.respondDraw(c, page, err)
}

// submitClaim godoc
// @Summary Claim the open card with a written memory
// @Tags draw
// @Accept json
// @Produce json
// @Param claim body submitRequest true "Description"
// @Success 200 {object} drawPageResponse
// @Failure 400 {object} errorWithPage
// @Failure 409 {object} errorWithPage
// @Failure 503 {object} errorWithPage
// @Router /home/claim/submit [post]
func (h *Handler) submitClaim(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	page, err := h.cards.SubmitClaim(c.Request.Context(), userID(c), req.Description)
	if err != nil {
		var view *drawPageResponse
		if len(page.Session.Cards) > 0 || page.Claim != nil {
			resp := newDrawPageResponse(page, h.cards.Animation())
			view = &resp
		}
		handleServiceErrorWithPage(c, err, view)
		return
	}
	c.JSON(http.StatusOK, newDrawPageResponse(page, h.cards.Animation()))
}
