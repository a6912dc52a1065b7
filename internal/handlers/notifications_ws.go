package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"anhthoxay/internal/models"
	"anhthoxay/internal/notifications"
)

// NotificationsWS godoc
// @Summary Notification stream
// @Description Subscribes the user to new notifications. Unsent ones are delivered right after the handshake.
// @Tags notifications
// @Param token query string true "access token"
// @Success 101 {object} models.Notification "Switching Protocols"
// @Failure 401 {object} ErrorResponse
// @Router /ws/notifications [get]
func NotificationsWS(db *gorm.DB, hub *notifications.Hub, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var list []models.Notification
		if err := db.Where("user_id = ? AND read_at IS NULL AND sent_at IS NULL", userID).
			Order("created_at").Find(&list).Error; err != nil {
			list = nil
		}
		if err := hub.AddClient(userID, conn, list...); err != nil {
			return
		}
		defer hub.RemoveClient(userID, conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
