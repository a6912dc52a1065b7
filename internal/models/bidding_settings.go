package models

import "time"

// BiddingSettings is the single-row policy table owned by the settings
// collaborator. Only the escrow columns are read here.
type BiddingSettings struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	EscrowPercentage int64     `gorm:"not null" json:"escrowPercentage"`
	EscrowMinAmount  int64     `gorm:"not null" json:"escrowMinAmount"`
	EscrowMaxAmount  *int64    `json:"escrowMaxAmount"`
	Currency         string    `gorm:"size:8;not null" json:"currency"`
	UpdatedBy        string    `gorm:"size:64" json:"updatedBy"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// BiddingSettingsID is the primary key of the only settings row.
const BiddingSettingsID = 1
