package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// RoleFlagsRepository maintains the representative projection stored on
// identity profiles. The projection is a cache; callers needing authoritative
// truth must consult the assignment stores.
type RoleFlagsRepository struct {
	store docstore.Store
}

// NewRoleFlagsRepository creates a new role-flags repository.
func NewRoleFlagsRepository(store docstore.Store) *RoleFlagsRepository {
	return &RoleFlagsRepository{store: store}
}

// Get returns the flags stored on a profile, or nil when the profile carries
// none.
func (r *RoleFlagsRepository) Get(ctx context.Context, accountID string) (*models.RoleFlags, error) {
	fields, err := r.store.Get(ctx, profilePath(accountID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading profile %s: %w", accountID, err)
	}
	return flagsFromProfile(accountID, fields), nil
}

// FindAccountByEmail scans profiles for one carrying the given email. Used as
// the fallback when an assignment record has no stored account identifier.
func (r *RoleFlagsRepository) FindAccountByEmail(ctx context.Context, email string) (string, error) {
	docs, err := r.store.List(ctx, profilesCollection)
	if err != nil {
		return "", fmt.Errorf("error scanning profiles: %w", err)
	}
	for _, doc := range docs {
		if strings.EqualFold(stringField(doc.Fields, "email"), email) {
			return doc.ID(), nil
		}
	}
	return "", apperrors.ErrAccountNotFound
}

// ListRepresentatives returns the flags of every profile currently marked as
// a representative for the given partition.
func (r *RoleFlagsRepository) ListRepresentatives(ctx context.Context, level int, dept string) ([]*models.RoleFlags, error) {
	docs, err := r.store.List(ctx, profilesCollection)
	if err != nil {
		return nil, fmt.Errorf("error scanning profiles: %w", err)
	}

	var flags []*models.RoleFlags
	for _, doc := range docs {
		f := flagsFromProfile(doc.ID(), doc.Fields)
		if f != nil && f.IsRepresentative && f.YearLevel == level && f.Department == dept {
			flags = append(flags, f)
		}
	}
	return flags, nil
}

// BatchSet writes the flags onto the profile, creating the profile document
// if the identity provider has not mirrored one yet.
func (r *RoleFlagsRepository) BatchSet(b docstore.Batch, f *models.RoleFlags) {
	fields := map[string]interface{}{
		"roles": map[string]interface{}{
			"isRepresentative": f.IsRepresentative,
			"year":             f.YearLevel,
			"department":       f.Department,
			"slot":             string(f.Slot),
			"updatedAt":        encodeTime(f.UpdatedAt),
		},
	}
	if f.Email != "" {
		fields["email"] = f.Email
	}
	b.Set(profilePath(f.AccountID), fields, true)
}

// BatchClear drops the representative marking from a profile.
func (r *RoleFlagsRepository) BatchClear(b docstore.Batch, accountID string) {
	b.Set(profilePath(accountID), map[string]interface{}{
		"roles": map[string]interface{}{
			"isRepresentative": false,
		},
	}, true)
}

func flagsFromProfile(accountID string, fields map[string]interface{}) *models.RoleFlags {
	roles := mapField(fields, "roles")
	if roles == nil {
		return nil
	}
	f := &models.RoleFlags{
		AccountID:        accountID,
		IsRepresentative: boolField(roles, "isRepresentative"),
		YearLevel:        intField(roles, "year"),
		Department:       stringField(roles, "department"),
		Slot:             models.SlotID(stringField(roles, "slot")),
		Email:            stringField(fields, "email"),
	}
	if t := timeField(roles, "updatedAt"); t != nil {
		f.UpdatedAt = *t
	}
	return f
}
