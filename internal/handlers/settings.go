package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anhthoxay/internal/escrow"
	"anhthoxay/internal/services"
)

// EscrowPolicyPayload is the escrow part of the bidding settings.
type EscrowPolicyPayload struct {
	Percentage int64  `json:"percentage" example:"10"`
	MinAmount  int64  `json:"minAmount" example:"1000000"`
	MaxAmount  *int64 `json:"maxAmount,omitempty" example:"50000000"`
	Currency   string `json:"currency" example:"VND"`
}

func toPolicyPayload(p escrow.Policy) EscrowPolicyPayload {
	return EscrowPolicyPayload{Percentage: p.Percentage, MinAmount: p.MinAmount, MaxAmount: p.MaxAmount, Currency: p.Currency}
}

// GetEscrowPolicy godoc
// @Summary Current escrow deposit policy
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} EscrowPolicyPayload
// @Failure 503 {object} ErrorResponse
// @Router /admin/settings/escrow [get]
func GetEscrowPolicy(settings *services.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := settings.EscrowPolicy(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPolicyPayload(p))
	}
}

// UpdateEscrowPolicy godoc
// @Summary Replace the escrow deposit policy
// @Description Affects escrows created afterwards. Existing escrows keep their amount.
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body EscrowPolicyPayload true "policy"
// @Success 200 {object} EscrowPolicyPayload
// @Failure 400 {object} ErrorResponse
// @Router /admin/settings/escrow [put]
func UpdateEscrowPolicy(settings *services.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		var r EscrowPolicyPayload
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		p, err := settings.UpdateEscrowPolicy(c.Request.Context(), escrow.Policy{
			Percentage: r.Percentage,
			MinAmount:  r.MinAmount,
			MaxAmount:  r.MaxAmount,
			Currency:   r.Currency,
		}, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPolicyPayload(p))
	}
}
