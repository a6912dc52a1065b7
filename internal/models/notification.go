package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"anhthoxay/internal/utils"
)

// Notification is an in-app notification for a user. EscrowID is set for
// notifications about an escrow change.
// swagger:model
type Notification struct {
	ID        string          `gorm:"primaryKey;size:21" json:"id"`
	UserID    string          `gorm:"size:64;not null;index" json:"userID"`
	EscrowID  *string         `gorm:"size:21;index" json:"escrowId,omitempty"`
	Type      string          `gorm:"type:varchar(255);not null" json:"type"`
	Payload   json.RawMessage `gorm:"type:jsonb" json:"payload" swaggertype:"object"`
	SentAt    *time.Time      `gorm:"index" json:"sentAt"`
	ReadAt    *time.Time      `gorm:"index" json:"readAt"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID, err = utils.GenerateNanoID()
	}
	return
}
