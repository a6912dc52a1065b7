package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"anhthoxay/internal/utils"
)

// EscrowEvent is an append-only audit entry written in the same transaction
// as the escrow change it describes.
type EscrowEvent struct {
	ID         string         `gorm:"primaryKey;size:21" json:"id"`
	EscrowID   string         `gorm:"size:21;not null;index" json:"escrowId"`
	Escrow     Escrow         `gorm:"foreignKey:EscrowID" json:"-"`
	Type       string         `gorm:"type:varchar(32);not null" json:"type"`
	Amount     int64          `gorm:"not null;default:0" json:"amount"`
	FromStatus *string        `gorm:"type:varchar(20)" json:"fromStatus"`
	ToStatus   string         `gorm:"type:varchar(20);not null" json:"toStatus"`
	Actor      string         `gorm:"size:64;not null" json:"actor"`
	Note       *string        `gorm:"type:text" json:"note"`
	Metadata   datatypes.JSON `gorm:"type:json" json:"metadata" swaggertype:"object"`
	Version    int64          `gorm:"not null" json:"version"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
}

func (e *EscrowEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID, err = utils.GenerateNanoID()
	}
	return
}
