package models

import (
	"time"

	"gorm.io/gorm"

	"anhthoxay/internal/utils"
)

// EscrowEvidence is a file attached to a disputed escrow.
type EscrowEvidence struct {
	ID          string    `gorm:"primaryKey;size:21" json:"id"`
	EscrowID    string    `gorm:"size:21;not null;index" json:"escrowId"`
	Escrow      Escrow    `gorm:"foreignKey:EscrowID" json:"-"`
	ObjectKey   string    `gorm:"type:varchar(255);not null;unique" json:"-"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"fileName"`
	ContentType string    `gorm:"type:varchar(100);not null" json:"contentType"`
	Size        int64     `gorm:"not null" json:"size"`
	UploadedBy  string    `gorm:"size:64;not null" json:"uploadedBy"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (e *EscrowEvidence) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID, err = utils.GenerateNanoID()
	}
	return
}
