package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"anhthoxay/internal/escrow"
	"anhthoxay/internal/models"
	"anhthoxay/internal/services/storage"
	"anhthoxay/internal/utils"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

var allowedEvidenceTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
	"video/mp4":       true,
}

// EvidenceService stores files that back a dispute. Files are accepted only
// while the escrow is DISPUTED.
type EvidenceService struct {
	db       *gorm.DB
	storage  storage.Storage
	escrows  *EscrowService
	maxBytes int64
	urlTTL   time.Duration
	log      logrus.FieldLogger
}

func NewEvidenceService(db *gorm.DB, st storage.Storage, escrows *EscrowService, maxBytes int64, urlTTL time.Duration, log logrus.FieldLogger) *EvidenceService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EvidenceService{db: db, storage: st, escrows: escrows, maxBytes: maxBytes, urlTTL: urlTTL, log: log}
}

// EvidenceUpload is one file sent by a dispute party.
type EvidenceUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	Actor       string
}

// Evidence is a stored file with a temporary download URL.
type Evidence struct {
	models.EscrowEvidence
	URL string `json:"url"`
}

func (s *EvidenceService) Attach(ctx context.Context, ref string, up EvidenceUpload) (Evidence, error) {
	if err := requireActor(up.Actor); err != nil {
		return Evidence{}, err
	}
	if up.Size <= 0 || up.Size > s.maxBytes {
		return Evidence{}, escrow.InvalidInput(fmt.Sprintf("evidence must be between 1 and %d bytes", s.maxBytes))
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(up.ContentType, ";")[0]))
	if !allowedEvidenceTypes[contentType] {
		return Evidence{}, escrow.InvalidInput("unsupported evidence type " + contentType)
	}

	e, err := s.escrows.Get(ctx, ref)
	if err != nil {
		return Evidence{}, err
	}
	if e.Status() != escrow.StatusDisputed {
		return Evidence{}, &escrow.Error{
			Kind:     escrow.KindInvalidStatusTransition,
			Message:  "evidence is accepted only while the escrow is DISPUTED",
			Metadata: map[string]string{"status": e.Status().String()},
		}
	}

	id, err := utils.GenerateNanoID()
	if err != nil {
		return Evidence{}, err
	}
	name := safeFileName(up.FileName)
	key := path.Join("escrows", e.ID, "evidence", id+"-"+name)
	if _, err := s.storage.Upload(ctx, key, up.Body, up.Size, contentType); err != nil {
		return Evidence{}, fmt.Errorf("upload evidence: %w", err)
	}

	row := models.EscrowEvidence{
		ID:          id,
		EscrowID:    e.ID,
		ObjectKey:   key,
		FileName:    name,
		ContentType: contentType,
		Size:        up.Size,
		UploadedBy:  up.Actor,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if rmErr := s.storage.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			s.log.WithError(rmErr).WithFields(logrus.Fields{"escrow_id": e.ID, "object_key": key}).
				Warn("orphaned evidence object left in storage")
		}
		return Evidence{}, fmt.Errorf("save evidence: %w", err)
	}
	s.log.WithFields(logrus.Fields{"escrow_id": e.ID, "code": e.Code, "actor": up.Actor, "size": up.Size}).
		Info("dispute evidence attached")
	return s.withURL(ctx, row)
}

// List returns the evidence of an escrow, oldest first.
func (s *EvidenceService) List(ctx context.Context, ref string) ([]Evidence, error) {
	e, err := s.escrows.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	var rows []models.EscrowEvidence
	if err := s.db.WithContext(ctx).Where("escrow_id = ?", e.ID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	out := make([]Evidence, 0, len(rows))
	for _, row := range rows {
		ev, err := s.withURL(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *EvidenceService) withURL(ctx context.Context, row models.EscrowEvidence) (Evidence, error) {
	u, err := s.storage.GetURL(ctx, row.ObjectKey, s.urlTTL)
	if err != nil {
		return Evidence{}, fmt.Errorf("sign evidence url: %w", err)
	}
	return Evidence{EscrowEvidence: row, URL: u}, nil
}

func safeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "evidence"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}
