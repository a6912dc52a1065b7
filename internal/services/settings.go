package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"anhthoxay/internal/escrow"
	"anhthoxay/internal/models"
)

// SettingsService reads and writes the escrow policy row of bidding_settings,
// reading through an optional Redis cache.
type SettingsService struct {
	db    *gorm.DB
	cache *PolicyCache
	log   logrus.FieldLogger
}

// NewSettingsService builds the provider; cache may be nil.
func NewSettingsService(db *gorm.DB, cache *PolicyCache, log logrus.FieldLogger) *SettingsService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SettingsService{db: db, cache: cache, log: log}
}

// EscrowPolicy returns the current policy. A missing or invalid row is
// reported as KindSettingsNotFound.
func (s *SettingsService) EscrowPolicy(ctx context.Context) (escrow.Policy, error) {
	if s.cache != nil {
		p, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.WithError(err).Warn("escrow policy cache read failed")
		} else if ok {
			return p, nil
		}
	}

	var row models.BiddingSettings
	if err := s.db.WithContext(ctx).First(&row, models.BiddingSettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return escrow.Policy{}, escrow.SettingsNotFound(err)
		}
		return escrow.Policy{}, fmt.Errorf("load bidding settings: %w", err)
	}
	p := policyFromRow(row)
	if err := p.Validate(); err != nil {
		return escrow.Policy{}, escrow.SettingsNotFound(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.log.WithError(err).Warn("escrow policy cache write failed")
		}
	}
	return p, nil
}

// UpdateEscrowPolicy validates and stores p, then drops the cached copy.
func (s *SettingsService) UpdateEscrowPolicy(ctx context.Context, p escrow.Policy, actor string) (escrow.Policy, error) {
	if err := p.Validate(); err != nil {
		return escrow.Policy{}, err
	}
	row := models.BiddingSettings{
		ID:               models.BiddingSettingsID,
		EscrowPercentage: p.Percentage,
		EscrowMinAmount:  p.MinAmount,
		EscrowMaxAmount:  p.MaxAmount,
		Currency:         p.Currency,
		UpdatedBy:        actor,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return escrow.Policy{}, fmt.Errorf("save bidding settings: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WithError(err).Warn("escrow policy cache invalidation failed")
		}
	}
	s.log.WithFields(logrus.Fields{
		"actor":      actor,
		"percentage": p.Percentage,
		"min_amount": p.MinAmount,
	}).Info("escrow policy updated")
	return p, nil
}

func policyFromRow(row models.BiddingSettings) escrow.Policy {
	return escrow.Policy{
		Percentage: row.EscrowPercentage,
		MinAmount:  row.EscrowMinAmount,
		MaxAmount:  row.EscrowMaxAmount,
		Currency:   row.Currency,
	}
}
