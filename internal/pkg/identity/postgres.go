package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/pkg/auth"
	"github.com/mertcan/gradus/internal/pkg/dberrors"
	"github.com/mertcan/gradus/internal/pkg/email"
)

// resetTokenTTL bounds how long a dispatched reset token stays valid.
const resetTokenTTL = 24 * time.Hour

// PostgresProvider implements Provider on the accounts tables.
type PostgresProvider struct {
	db     *pgxpool.Pool
	mailer email.Service
	logger zerolog.Logger
}

// NewPostgresProvider creates a provider backed by the given pool.
func NewPostgresProvider(db *pgxpool.Pool, mailer email.Service, logger zerolog.Logger) *PostgresProvider {
	return &PostgresProvider{
		db:     db,
		mailer: mailer,
		logger: logger,
	}
}

// CreateAccount creates an account and returns its identifier.
func (p *PostgresProvider) CreateAccount(ctx context.Context, emailAddr, password string) (string, error) {
	emailAddr = normalizeEmail(emailAddr)

	if _, err := p.FindAccountByEmail(ctx, emailAddr); err == nil {
		return "", ErrAccountExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New().String()
	_, err = p.db.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
	`, id, emailAddr, hash)
	if err != nil {
		// Lost a race against a concurrent create for the same email.
		if dberrors.IsDuplicateConstraintError(err, "accounts_email_key") {
			return "", ErrAccountExists
		}
		return "", fmt.Errorf("error creating account: %w", err)
	}

	if err := p.mailer.SendInitialCredentialEmail(emailAddr, emailAddr); err != nil {
		// The account exists either way; the notice is advisory.
		p.logger.Warn().Err(err).Str("email", emailAddr).Msg("Failed to send credential notice")
	}
	return id, nil
}

// FindAccountByEmail returns the account identifier for an email.
func (p *PostgresProvider) FindAccountByEmail(ctx context.Context, emailAddr string) (string, error) {
	var id string
	err := p.db.QueryRow(ctx,
		`SELECT id FROM accounts WHERE email = $1`, normalizeEmail(emailAddr)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error looking up account: %w", err)
	}
	return id, nil
}

// SendPasswordReset stores a reset token for the account and emails it.
func (p *PostgresProvider) SendPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)

	accountID, err := p.FindAccountByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}

	token := uuid.New().String()
	_, err = p.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (token, account_id, expires_at, used)
		VALUES ($1, $2, $3, FALSE)
	`, token, accountID, time.Now().Add(resetTokenTTL))
	if err != nil {
		return fmt.Errorf("error storing reset token: %w", err)
	}

	if err := p.mailer.SendPasswordResetEmail(emailAddr, emailAddr, token); err != nil {
		return fmt.Errorf("failed to dispatch password reset: %w", err)
	}
	return nil
}

func normalizeEmail(emailAddr string) string {
	return strings.ToLower(strings.TrimSpace(emailAddr))
}
