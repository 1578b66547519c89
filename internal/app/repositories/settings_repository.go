package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// ErrSettingsNotFound is returned when the academic-year document is absent.
var ErrSettingsNotFound = errors.New("academic year settings not found")

// SettingsRepository persists the academic-year record.
type SettingsRepository struct {
	store docstore.Store
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(store docstore.Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// GetYear reads the persisted academic-year record.
func (r *SettingsRepository) GetYear(ctx context.Context) (*models.YearSettings, error) {
	fields, err := r.store.Get(ctx, settingsYearPath)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading academic year settings: %w", err)
	}

	s := &models.YearSettings{
		CurrentYear:  intField(fields, "currentYear"),
		PreviousYear: intField(fields, "previousYear"),
		UpdatedBy:    stringField(fields, "updatedBy"),
	}
	if t := timeField(fields, "lastUpdated"); t != nil {
		s.LastUpdated = *t
	}
	return s, nil
}

// SaveYear replaces the persisted academic-year record.
func (r *SettingsRepository) SaveYear(ctx context.Context, s *models.YearSettings) error {
	fields := map[string]interface{}{
		"currentYear": s.CurrentYear,
		"lastUpdated": encodeTime(s.LastUpdated),
		"updatedBy":   s.UpdatedBy,
	}
	if s.PreviousYear != 0 {
		fields["previousYear"] = s.PreviousYear
	}
	if err := r.store.Set(ctx, settingsYearPath, fields, false); err != nil {
		return fmt.Errorf("error persisting academic year: %w", err)
	}
	return nil
}
