// Package drafts keeps one in-progress form per category so a restarted tab
// can restore it.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/matheus3301/msana/internal/model"
	"go.uber.org/zap"
)

// CategoryPharmacy is the draft of the pharmacy billing form.
const CategoryPharmacy = "pharmacy"

var (
	ErrNoCategory  = errors.New("draft category is required")
	ErrInvalidJSON = errors.New("draft data must be a JSON document")
)

// Store persists drafts.
type Store interface {
	SaveDraft(ctx context.Context, category string, data []byte) error
	GetDraft(ctx context.Context, category string) (*model.Draft, error)
	ClearDraft(ctx context.Context, category string) error
}

// Service saves, restores and clears drafts.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a draft service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Save overwrites the category's draft with data.
func (s *Service) Save(ctx context.Context, category string, data []byte) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrNoCategory
	}
	if !json.Valid(data) {
		return ErrInvalidJSON
	}
	if err := s.store.SaveDraft(ctx, category, data); err != nil {
		return err
	}
	s.logger.Debug("draft saved", zap.String("category", category), zap.Int("bytes", len(data)))
	return nil
}

// Get returns the category's draft, or nil.
func (s *Service) Get(ctx context.Context, category string) (*model.Draft, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrNoCategory
	}
	return s.store.GetDraft(ctx, category)
}

// Clear drops the category's draft. Clearing a missing draft is not an error.
func (s *Service) Clear(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrNoCategory
	}
	if err := s.store.ClearDraft(ctx, category); err != nil {
		return err
	}
	s.logger.Debug("draft cleared", zap.String("category", category))
	return nil
}
