package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anhthoxay/internal/services"
)

// UploadEvidence godoc
// @Summary Attach a file to a dispute
// @Description Accepts jpeg, png, webp, pdf and mp4 files while the escrow is DISPUTED.
// @Tags escrows
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param ref path string true "escrow id or code"
// @Param file formData file true "evidence file"
// @Success 201 {object} services.Evidence
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /escrows/{ref}/dispute/evidence [post]
func UploadEvidence(escrows *services.EscrowService, evidence *services.EvidenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := loadVisible(c, escrows)
		if !ok {
			return
		}
		userID, _, _ := currentUser(c)
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable file"})
			return
		}
		defer f.Close()
		ev, err := evidence.Attach(c.Request.Context(), e.ID, services.EvidenceUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
			Actor:       userID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ev)
	}
}

// ListEvidence godoc
// @Summary Files attached to a dispute
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param ref path string true "escrow id or code"
// @Success 200 {array} services.Evidence
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /escrows/{ref}/dispute/evidence [get]
func ListEvidence(escrows *services.EscrowService, evidence *services.EvidenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := loadVisible(c, escrows)
		if !ok {
			return
		}
		list, err := evidence.List(c.Request.Context(), e.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
