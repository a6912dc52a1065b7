package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"anhthoxay/internal/notifications"
	"anhthoxay/internal/services"
)

// EscrowSnapshotEvent is the first message of an escrow status stream.
// Type is always `escrow.snapshot`.
type EscrowSnapshotEvent struct {
	Type   string         `json:"type" example:"escrow.snapshot"`
	Escrow EscrowResponse `json:"escrow"`
}

// EscrowStatusWS godoc
// @Summary Escrow status stream
// @Description Sends an EscrowSnapshotEvent, then an EscrowStatusEvent on every committed change of the escrow. Events whose version is not above the snapshot's are already reflected in it. Open to admins and the homeowner.
// @Tags escrows
// @Param ref path string true "escrow id or code"
// @Param token query string true "access token"
// @Success 101 {object} notifications.EscrowStatusEvent "Switching Protocols"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /ws/escrows/{ref}/status [get]
func EscrowStatusWS(svc *services.EscrowService, hub *notifications.Hub, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := loadVisible(c, svc)
		if !ok {
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ctx := c.Request.Context()
		snapshot := func() (any, error) {
			fresh, err := svc.Get(ctx, e.ID)
			if err != nil {
				return nil, err
			}
			return EscrowSnapshotEvent{Type: "escrow.snapshot", Escrow: toEscrowResponse(fresh)}, nil
		}
		if err := hub.WatchEscrow(e.ID, conn, snapshot); err != nil {
			return
		}
		defer hub.UnwatchEscrow(e.ID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
