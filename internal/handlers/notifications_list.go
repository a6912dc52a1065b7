package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"anhthoxay/internal/models"
)

// ListNotifications godoc
// @Summary Notifications of the current user
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Param unread query bool false "only unread"
// @Param escrowId query string false "only notifications about this escrow"
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		limit, offset := parsePagination(c)
		q := db.Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			q = q.Where("read_at IS NULL")
		}
		if escrowID := c.Query("escrowId"); escrowID != "" {
			q = q.Where("escrow_id = ?", escrowID)
		}
		var ns []models.Notification
		if err := q.Order("created_at desc").
			Limit(limit).Offset(offset).Find(&ns).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, ns)
	}
}
