package models

import (
	"time"

	"gorm.io/gorm"

	"anhthoxay/internal/utils"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleHomeowner  Role = "HOMEOWNER"
	RoleContractor Role = "CONTRACTOR"
)

// User mirrors the account records owned by the auth service; only what the
// escrow API needs for authorization lives here.
type User struct {
	ID          string    `gorm:"primaryKey;size:21" json:"id"`
	Username    string    `gorm:"type:varchar(255);not null;unique" json:"username"`
	Role        Role      `gorm:"type:varchar(20);not null" json:"role"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	RegistredAt time.Time `gorm:"autoCreateTime" json:"registredAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID, err = utils.GenerateNanoID()
	}
	return
}
