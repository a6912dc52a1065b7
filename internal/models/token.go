package models

import (
	"time"

	"gorm.io/gorm"

	"anhthoxay/internal/utils"
)

// TokenAccess is the only token type the escrow API accepts. Refresh tokens
// stay with the auth service.
const TokenAccess = "access"

// Token is a bearer token issued by the auth service for a user.
type Token struct {
	ID        string    `gorm:"primaryKey;size:21"`
	UserID    string    `gorm:"size:21;index;not null"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Token     string    `gorm:"type:varchar(255);not null;unique"`
	Type      string    `gorm:"type:varchar(10);not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Expired reports whether the token is past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

func (t *Token) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID, err = utils.GenerateNanoID()
	}
	return
}
