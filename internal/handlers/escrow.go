package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"anhthoxay/internal/escrow"
	"anhthoxay/internal/models"
	"anhthoxay/internal/services"
)

// EscrowResponse is the API view of an escrow.
type EscrowResponse struct {
	ID             string     `json:"id"`
	Code           string     `json:"code" example:"ESC-2026-001"`
	ProjectID      string     `json:"projectId"`
	BidID          string     `json:"bidId"`
	HomeownerID    string     `json:"homeownerId"`
	Amount         int64      `json:"amount" example:"40000000"`
	ReleasedAmount int64      `json:"releasedAmount" example:"10000000"`
	Remaining      int64      `json:"remaining" example:"30000000"`
	Currency       string     `json:"currency" example:"VND"`
	Status         string     `json:"status" example:"PARTIAL_RELEASED"`
	ConfirmedBy    string     `json:"confirmedBy,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmedAt,omitempty"`
	ReleasedBy     string     `json:"releasedBy,omitempty"`
	ReleasedAt     *time.Time `json:"releasedAt,omitempty"`
	RefundedBy     string     `json:"refundedBy,omitempty"`
	RefundedAt     *time.Time `json:"refundedAt,omitempty"`
	CancelledBy    string     `json:"cancelledBy,omitempty"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
	DisputeReason  string     `json:"disputeReason,omitempty"`
	DisputedBy     string     `json:"disputedBy,omitempty"`
	DisputedAt     *time.Time `json:"disputedAt,omitempty"`
	ResolvedBy     string     `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	ResolutionNote string     `json:"resolutionNote,omitempty"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func toEscrowResponse(e *escrow.Escrow) EscrowResponse {
	return EscrowResponse{
		ID:             e.ID,
		Code:           e.Code,
		ProjectID:      e.ProjectID,
		BidID:          e.BidID,
		HomeownerID:    e.HomeownerID,
		Amount:         e.Amount(),
		ReleasedAmount: e.ReleasedAmount(),
		Remaining:      e.Remaining(),
		Currency:       e.Currency,
		Status:         e.Status().String(),
		ConfirmedBy:    e.ConfirmedBy,
		ConfirmedAt:    e.ConfirmedAt,
		ReleasedBy:     e.ReleasedBy,
		ReleasedAt:     e.ReleasedAt,
		RefundedBy:     e.RefundedBy,
		RefundedAt:     e.RefundedAt,
		CancelledBy:    e.CancelledBy,
		CancelledAt:    e.CancelledAt,
		DisputeReason:  e.DisputeReason,
		DisputedBy:     e.DisputedBy,
		DisputedAt:     e.DisputedAt,
		ResolvedBy:     e.ResolvedBy,
		ResolvedAt:     e.ResolvedAt,
		ResolutionNote: e.ResolutionNote,
		Version:        e.Version,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

type EscrowListResponse struct {
	Items  []EscrowResponse `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type EscrowEventResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type" example:"RELEASED"`
	Amount     int64             `json:"amount"`
	FromStatus string            `json:"fromStatus,omitempty"`
	ToStatus   string            `json:"toStatus"`
	Actor      string            `json:"actor"`
	Note       string            `json:"note,omitempty"`
	Version    int64             `json:"version"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

type DepositPreviewResponse struct {
	BidPrice   int64  `json:"bidPrice" example:"5000000"`
	Amount     int64  `json:"amount" example:"1000000"`
	Percentage int64  `json:"percentage" example:"10"`
	MinAmount  int64  `json:"minAmount" example:"1000000"`
	MaxAmount  *int64 `json:"maxAmount,omitempty"`
	Currency   string `json:"currency" example:"VND"`
}

type CreateEscrowRequest struct {
	ProjectID   string `json:"projectId"`
	BidID       string `json:"bidId"`
	HomeownerID string `json:"homeownerId"`
	BidPrice    int64  `json:"bidPrice" example:"400000000"`
}

type ReleaseEscrowRequest struct {
	Amount int64 `json:"amount" example:"10000000"`
}

type OpenDisputeRequest struct {
	Reason string `json:"reason"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" enums:"RELEASED,REFUNDED"`
	Note    string `json:"note"`
}

// loadVisible fetches the escrow named by :ref if the caller is an admin or
// its homeowner.
func loadVisible(c *gin.Context, svc *services.EscrowService) (*escrow.Escrow, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
		return nil, false
	}
	e, err := svc.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if role != models.RoleAdmin && e.HomeownerID != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return nil, false
	}
	return e, true
}

// CreateEscrow godoc
// @Summary Open an escrow for a matched bid
// @Description Computes the deposit from the bid price and the current policy and opens a PENDING escrow. Homeowners may only open escrows for themselves.
// @Tags escrows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body CreateEscrowRequest true "matched bid"
// @Success 201 {object} EscrowResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /escrows [post]
func CreateEscrow(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		var r CreateEscrowRequest
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if role == models.RoleHomeowner {
			if r.HomeownerID == "" {
				r.HomeownerID = userID
			}
			if r.HomeownerID != userID {
				c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
				return
			}
		}
		e, err := svc.CreateEscrow(c.Request.Context(), services.CreateParams{
			ProjectID:   r.ProjectID,
			BidID:       r.BidID,
			HomeownerID: r.HomeownerID,
			BidPrice:    r.BidPrice,
			Actor:       userID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toEscrowResponse(e))
	}
}

// ListEscrows godoc
// @Summary List escrows
// @Description Admins see every escrow; homeowners only their own.
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param status query string false "status filter"
// @Param projectId query string false "project filter"
// @Param homeownerId query string false "homeowner filter (admins only)"
// @Param limit query int false "page size, max 100"
// @Param offset query int false "offset"
// @Success 200 {object} EscrowListResponse
// @Failure 400 {object} ErrorResponse
// @Router /escrows [get]
func ListEscrows(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		limit, offset := parsePagination(c)
		f := escrow.Filter{
			ProjectID:   c.Query("projectId"),
			HomeownerID: c.Query("homeownerId"),
			Limit:       limit,
			Offset:      offset,
		}
		if s := c.Query("status"); s != "" {
			status, err := escrow.ParseStatus(s)
			if err != nil {
				respondError(c, err)
				return
			}
			f.Status = status
		}
		if role != models.RoleAdmin {
			f.HomeownerID = userID
		}
		items, total, err := svc.List(c.Request.Context(), f)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := EscrowListResponse{Items: make([]EscrowResponse, 0, len(items)), Total: total, Limit: limit, Offset: offset}
		for _, e := range items {
			resp.Items = append(resp.Items, toEscrowResponse(e))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// PreviewDeposit godoc
// @Summary Preview the deposit for a bid price
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param bidPrice query int true "bid price"
// @Success 200 {object} DepositPreviewResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /escrows/deposit-preview [get]
func PreviewDeposit(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bidPrice, err := strconv.ParseInt(c.Query("bidPrice"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid bidPrice", Code: string(escrow.KindInvalidInput)})
			return
		}
		p, err := svc.PreviewDeposit(c.Request.Context(), bidPrice)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, DepositPreviewResponse{
			BidPrice:   p.BidPrice,
			Amount:     p.Amount,
			Percentage: p.Policy.Percentage,
			MinAmount:  p.Policy.MinAmount,
			MaxAmount:  p.Policy.MaxAmount,
			Currency:   p.Policy.Currency,
		})
	}
}

// GetEscrow godoc
// @Summary Escrow by id or code
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param ref path string true "escrow id or ESC-YYYY-NNN code"
// @Success 200 {object} EscrowResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /escrows/{ref} [get]
func GetEscrow(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := loadVisible(c, svc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, toEscrowResponse(e))
	}
}

// ListEscrowEvents godoc
// @Summary Escrow audit trail
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param ref path string true "escrow id or code"
// @Success 200 {array} EscrowEventResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /escrows/{ref}/events [get]
func ListEscrowEvents(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := loadVisible(c, svc)
		if !ok {
			return
		}
		events, err := svc.Events(c.Request.Context(), e.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := make([]EscrowEventResponse, 0, len(events))
		for _, ev := range events {
			item := EscrowEventResponse{
				ID:         ev.ID,
				Type:       string(ev.Type),
				Amount:     ev.Amount,
				ToStatus:   ev.ToStatus.String(),
				Actor:      ev.Actor,
				Note:       ev.Note,
				Version:    ev.Version,
				Metadata:   ev.Metadata,
				OccurredAt: ev.OccurredAt,
			}
			if ev.FromStatus.Valid() {
				item.FromStatus = ev.FromStatus.String()
			}
			resp = append(resp, item)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ConfirmEscrow godoc
// @Summary Confirm receipt of funds
// @Description PENDING -> HELD.
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param ref path string true "escrow id or code"
// @Success 200 {object} EscrowResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /escrows/{ref}/confirm [post]
func ConfirmEscrow(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		e, err := svc.ConfirmHeld(c.Request.Context(), c.Param("ref"), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toEscrowResponse(e))
	}
}

// ReleaseEscrow godoc
// @Summary Release part or all of the remaining balance
// @Description The status becomes RELEASED when the balance is exhausted and PARTIAL_RELEASED otherwise.
// @Tags escrows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param ref path string true "escrow id or code"
// @Param input body ReleaseEscrowRequest true "amount to release"
// @Success 200 {object} EscrowResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /escrows/{ref}/release [post]
func ReleaseEscrow(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		var r ReleaseEscrowRequest
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		e, err := svc.ReleasePartial(c.Request.Context(), c.Param("ref"), r.Amount, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toEscrowResponse(e))
	}
}

// RefundEscrow godoc
// @Summary Refund the remaining balance to the homeowner
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param ref path string true "escrow id or code"
// @Success 200 {object} EscrowResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /escrows/{ref}/refund [post]
func RefundEscrow(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		e, err := svc.Refund(c.Request.Context(), c.Param("ref"), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toEscrowResponse(e))
	}
}

// CancelEscrow godoc
// @Summary Cancel an unconfirmed escrow
// @Description PENDING -> CANCELLED. Allowed to admins and the homeowner.
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param ref path string true "escrow id or code"
// @Success 200 {object} EscrowResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /escrows/{ref}/cancel [post]
func CancelEscrow(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := loadVisible(c, svc)
		if !ok {
			return
		}
		userID, _, _ := currentUser(c)
		e, err := svc.Cancel(c.Request.Context(), e.ID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toEscrowResponse(e))
	}
}

// OpenDispute godoc
// @Summary Open a dispute
// @Description HELD|PARTIAL_RELEASED -> DISPUTED. Allowed to admins and the homeowner.
// @Tags escrows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param ref path string true "escrow id or code"
// @Param input body OpenDisputeRequest true "dispute reason"
// @Success 200 {object} EscrowResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /escrows/{ref}/dispute [post]
func OpenDispute(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r OpenDisputeRequest
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		e, ok := loadVisible(c, svc)
		if !ok {
			return
		}
		userID, _, _ := currentUser(c)
		e, err := svc.OpenDispute(c.Request.Context(), e.ID, r.Reason, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toEscrowResponse(e))
	}
}

// ResolveDispute godoc
// @Summary Resolve a dispute
// @Description DISPUTED -> RELEASED (the remaining balance is paid out) or REFUNDED.
// @Tags escrows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param ref path string true "escrow id or code"
// @Param input body ResolveDisputeRequest true "outcome"
// @Success 200 {object} EscrowResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /escrows/{ref}/dispute/resolve [post]
func ResolveDispute(svc *services.EscrowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		var r ResolveDisputeRequest
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		outcome, err := escrow.ParseStatus(strings.TrimSpace(r.Outcome))
		if err != nil {
			respondError(c, err)
			return
		}
		e, err := svc.ResolveDispute(c.Request.Context(), c.Param("ref"), outcome, userID, r.Note)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toEscrowResponse(e))
	}
}
