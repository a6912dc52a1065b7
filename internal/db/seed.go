package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"anhthoxay/internal/escrow"
	"anhthoxay/internal/models"
	"anhthoxay/internal/utils"
)

// SeedBiddingSettings writes the escrow policy row if it does not exist yet.
// An existing row is left as the admins configured it.
func SeedBiddingSettings(db *gorm.DB, p escrow.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var count int64
	if err := db.Model(&models.BiddingSettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	row := models.BiddingSettings{
		ID:               models.BiddingSettingsID,
		EscrowPercentage: p.Percentage,
		EscrowMinAmount:  p.MinAmount,
		EscrowMaxAmount:  p.MaxAmount,
		Currency:         p.Currency,
		UpdatedBy:        "seed",
	}
	return db.Create(&row).Error
}

// SeedUser returns the user with the given username, creating it with role
// when missing.
func SeedUser(db *gorm.DB, username string, role models.Role) (models.User, error) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}
	user = models.User{Username: username, Role: role, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		return user, fmt.Errorf("create user %s: %w", username, err)
	}
	return user, nil
}

// IssueAccessToken stores a fresh bearer token for the user.
func IssueAccessToken(db *gorm.DB, userID string, ttl time.Duration) (string, error) {
	tokenStr, err := utils.GenerateNanoID()
	if err != nil {
		return "", err
	}
	token := models.Token{UserID: userID, Token: tokenStr, Type: models.TokenAccess, ExpiresAt: time.Now().Add(ttl)}
	if err := db.Create(&token).Error; err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return tokenStr, nil
}
