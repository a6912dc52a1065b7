package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"anhthoxay/internal/models"
)

// ReadNotification godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "notification id"
// @Success 200 {object} models.Notification
// @Failure 404 {object} ErrorResponse
// @Router /notifications/{id}/read [patch]
func ReadNotification(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		var n models.Notification
		if err := db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&n).Error; err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid notification"})
			return
		}
		if n.ReadAt == nil {
			now := time.Now()
			if err := db.Model(&n).Update("read_at", now).Error; err != nil {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
				return
			}
			n.ReadAt = &now
		}
		c.JSON(http.StatusOK, n)
	}
}
