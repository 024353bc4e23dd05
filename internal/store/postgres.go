package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const userColumns = `id, email, first_name, last_name, password_hash, role, tenant_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var tenantID sql.NullString
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.PasswordHash,
		&user.Role, &tenantID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	user.TenantID = tenantID.String
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

// CreateUser inserts a user and returns it with generated columns filled in.
// A taken email yields ErrConflict.
func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	created, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, first_name, last_name, password_hash, role, tenant_id)
		VALUES (LOWER($1), $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING `+userColumns,
		user.Email, user.FirstName, user.LastName, user.PasswordHash, user.Role, user.TenantID))
	if isUniqueViolation(err) {
		return User{}, fmt.Errorf("user %s: %w", user.Email, ErrConflict)
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

const tenantColumns = `id, slug, name, plan, created_at, updated_at`

func scanTenant(row rowScanner) (Tenant, error) {
	var tenant Tenant
	err := row.Scan(&tenant.ID, &tenant.Slug, &tenant.Name, &tenant.Plan, &tenant.CreatedAt, &tenant.UpdatedAt)
	return tenant, err
}

func (s *PostgresStore) GetTenantByID(ctx context.Context, tenantID string) (Tenant, error) {
	return scanTenant(s.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id=$1`, tenantID))
}

func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	return scanTenant(s.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug=$1`, slug))
}

// SetupOrganization creates a tenant and makes userID its admin. It fails
// with ErrConflict when the slug is taken and sql.ErrNoRows when the user
// already belongs to a tenant.
func (s *PostgresStore) SetupOrganization(ctx context.Context, userID, slug, name string) (Tenant, User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Tenant{}, User{}, fmt.Errorf("begin organization tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tenant, err := scanTenant(tx.QueryRowContext(ctx, `
		INSERT INTO tenants (slug, name, plan) VALUES ($1, $2, 'free')
		RETURNING `+tenantColumns, slug, name))
	if isUniqueViolation(err) {
		return Tenant{}, User{}, fmt.Errorf("tenant %s: %w", slug, ErrConflict)
	}
	if err != nil {
		return Tenant{}, User{}, fmt.Errorf("insert tenant: %w", err)
	}

	user, err := scanUser(tx.QueryRowContext(ctx, `
		UPDATE users SET tenant_id=$2, role='admin', updated_at=NOW()
		WHERE id=$1 AND tenant_id IS NULL
		RETURNING `+userColumns, userID, tenant.ID))
	if err != nil {
		return Tenant{}, User{}, err
	}

	if err := tx.Commit(); err != nil {
		return Tenant{}, User{}, fmt.Errorf("commit organization tx: %w", err)
	}
	return tenant, user, nil
}

func (s *PostgresStore) UpdateTenantPlan(ctx context.Context, tenantID, plan string) (Tenant, error) {
	return scanTenant(s.db.QueryRowContext(ctx, `
		UPDATE tenants SET plan=$2, updated_at=NOW() WHERE id=$1
		RETURNING `+tenantColumns, tenantID, plan))
}

func (s *PostgresStore) CountTenants(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return count, nil
}

// ListTenantIDs returns every tenant id, oldest first.
func (s *PostgresStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// ConsumeRefreshSession revokes a live refresh session and returns its owner
// in one statement. The row lock taken by the UPDATE makes a concurrent call
// for the same token see revoked_at set and return sql.ErrNoRows.
func (s *PostgresStore) ConsumeRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		WITH consumed AS (
			UPDATE refresh_sessions
			SET revoked_at = NOW()
			WHERE token_hash = $1
				AND revoked_at IS NULL
				AND expires_at > NOW()
			RETURNING user_id
		)
		SELECT u.id, u.email, u.first_name, u.last_name, u.password_hash, u.role, u.tenant_id, u.created_at, u.updated_at
		FROM consumed c
		JOIN users u ON u.id = c.user_id
	`, tokenHash))
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// PurgeExpiredSessions removes refresh sessions and revoked access token
// records that can no longer be presented.
func (s *PostgresStore) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= $1 OR revoked_at IS NOT NULL`, now)
	if err != nil {
		return 0, fmt.Errorf("purge refresh sessions: %w", err)
	}
	sessions, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, `DELETE FROM revoked_access_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return sessions, fmt.Errorf("purge revoked tokens: %w", err)
	}
	tokens, _ := res.RowsAffected()
	return sessions + tokens, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
