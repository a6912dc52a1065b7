package models

import (
	"time"

	"gorm.io/gorm"

	"anhthoxay/internal/utils"
)

// Escrow is the persisted escrow row. Status holds the wire name of the
// escrow.Status; Version guards concurrent read-modify-write cycles.
type Escrow struct {
	ID             string     `gorm:"primaryKey;size:21" json:"id"`
	Code           string     `gorm:"size:12;not null;uniqueIndex" json:"code"`
	ProjectID      string     `gorm:"size:64;not null;index" json:"projectId"`
	BidID          string     `gorm:"size:64;not null;uniqueIndex" json:"bidId"`
	HomeownerID    string     `gorm:"size:64;not null;index" json:"homeownerId"`
	Amount         int64      `gorm:"not null;check:chk_escrows_amount,amount > 0" json:"amount"`
	ReleasedAmount int64      `gorm:"not null;default:0;check:chk_escrows_released,released_amount >= 0 AND released_amount <= amount" json:"releasedAmount"`
	Currency       string     `gorm:"size:8;not null" json:"currency"`
	Status         string     `gorm:"type:varchar(20);not null;index" json:"status"`
	ConfirmedBy    *string    `gorm:"size:64" json:"confirmedBy"`
	ConfirmedAt    *time.Time `json:"confirmedAt"`
	ReleasedBy     *string    `gorm:"size:64" json:"releasedBy"`
	ReleasedAt     *time.Time `json:"releasedAt"`
	RefundedBy     *string    `gorm:"size:64" json:"refundedBy"`
	RefundedAt     *time.Time `json:"refundedAt"`
	CancelledBy    *string    `gorm:"size:64" json:"cancelledBy"`
	CancelledAt    *time.Time `json:"cancelledAt"`
	DisputeReason  *string    `gorm:"type:text" json:"disputeReason"`
	DisputedBy     *string    `gorm:"size:64" json:"disputedBy"`
	DisputedAt     *time.Time `json:"disputedAt"`
	ResolvedBy     *string    `gorm:"size:64" json:"resolvedBy"`
	ResolvedAt     *time.Time `json:"resolvedAt"`
	ResolutionNote *string    `gorm:"type:text" json:"resolutionNote"`
	Version        int64      `gorm:"not null;default:0" json:"version"`
	CreatedAt      time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (e *Escrow) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID, err = utils.GenerateNanoID()
	}
	return
}
