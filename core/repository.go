package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberListItem is a projection for directory listings (no password hash).
type MemberListItem struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ExternalMemberListItem is the external-member directory projection.
type ExternalMemberListItem struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberFilter selects directory rows. Filters are mutually exclusive:
// the first non-empty field wins, in the order ID > Username > CreateDate.
type MemberFilter struct {
	ID         string
	Username   string
	CreateDate string // YYYY-MM-DD
}

// ExternalMemberFilter mirrors MemberFilter for external members, with
// precedence Email > CreateDate.
type ExternalMemberFilter struct {
	Email      string
	CreateDate string
}

// MemberRepository defines persistence operations for local members.
type MemberRepository interface {
	FindByID(ctx context.Context, id string) (*Member, error)
	Create(ctx context.Context, id, username, passwordHash, role string) (*Member, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Search(ctx context.Context, f MemberFilter) ([]MemberListItem, error)
	HasAdmin(ctx context.Context) (bool, error)
}

// ExternalMemberRepository defines persistence for provider-created members.
type ExternalMemberRepository interface {
	FindOrCreate(ctx context.Context, email string) (*ExternalMember, error)
	Search(ctx context.Context, f ExternalMemberFilter) ([]ExternalMemberListItem, error)
}

// PgMemberRepository implements MemberRepository using pgxpool.
type PgMemberRepository struct {
	db *pgxpool.Pool
}

func NewPgMemberRepository(db *pgxpool.Pool) *PgMemberRepository {
	return &PgMemberRepository{db: db}
}

func (r *PgMemberRepository) FindByID(ctx context.Context, id string) (*Member, error) {
	const q = `SELECT id, username, password_hash, role, created_at FROM members WHERE id=$1`
	var m Member
	if err := r.db.QueryRow(ctx, q, id).Scan(&m.ID, &m.Username, &m.PasswordHash, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PgMemberRepository) Create(ctx context.Context, id, username, passwordHash, role string) (*Member, error) {
	const q = `INSERT INTO members (id, username, password_hash, role) VALUES ($1,$2,$3,$4) RETURNING id, username, password_hash, role, created_at`
	var m Member
	if err := r.db.QueryRow(ctx, q, id, username, passwordHash, role).Scan(&m.ID, &m.Username, &m.PasswordHash, &m.Role, &m.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateID
		}
		return nil, err
	}
	return &m, nil
}

func (r *PgMemberRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const q = `UPDATE members SET password_hash=$1 WHERE id=$2`
	tag, err := r.db.Exec(ctx, q, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *PgMemberRepository) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM members WHERE role='admin' LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PgMemberRepository) Search(ctx context.Context, f MemberFilter) ([]MemberListItem, error) {
	q, args := memberSearchQuery(f)
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]MemberListItem, 0)
	for rows.Next() {
		var m MemberListItem
		if err := rows.Scan(&m.ID, &m.Username, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// memberSearchQuery builds the directory query. Filter values are always
// bound as parameters; free-form input is treated as literal filter text.
func memberSearchQuery(f MemberFilter) (string, []any) {
	const base = `SELECT id, username, role, created_at FROM members`
	switch {
	case strings.TrimSpace(f.ID) != "":
		return base + ` WHERE id LIKE $1 ORDER BY created_at`, []any{likePattern(f.ID)}
	case strings.TrimSpace(f.Username) != "":
		return base + ` WHERE username LIKE $1 ORDER BY created_at`, []any{likePattern(f.Username)}
	case strings.TrimSpace(f.CreateDate) != "":
		return base + ` WHERE created_at::date = $1 ORDER BY created_at`, []any{strings.TrimSpace(f.CreateDate)}
	default:
		return base + ` ORDER BY created_at`, nil
	}
}

// likePattern wraps a substring filter for LIKE, escaping wildcard
// characters so user input never acts as a pattern.
func likePattern(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return "%" + s + "%"
}

// PgExternalMemberRepository implements ExternalMemberRepository using pgxpool.
type PgExternalMemberRepository struct {
	db *pgxpool.Pool
}

func NewPgExternalMemberRepository(db *pgxpool.Pool) *PgExternalMemberRepository {
	return &PgExternalMemberRepository{db: db}
}

// FindOrCreate returns the row for email, inserting it first when absent.
// The unique index on email makes concurrent first logins converge on a
// single row: the losing insert is a no-op and the follow-up select sees
// the winner's row.
func (r *PgExternalMemberRepository) FindOrCreate(ctx context.Context, email string) (*ExternalMember, error) {
	const ins = `INSERT INTO external_members (email, role) VALUES ($1, 'member') ON CONFLICT (email) DO NOTHING`
	if _, err := r.db.Exec(ctx, ins, email); err != nil {
		return nil, err
	}
	const sel = `SELECT id, email, role, created_at FROM external_members WHERE email=$1`
	var m ExternalMember
	if err := r.db.QueryRow(ctx, sel, email).Scan(&m.ID, &m.Email, &m.Role, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgExternalMemberRepository) Search(ctx context.Context, f ExternalMemberFilter) ([]ExternalMemberListItem, error) {
	q, args := externalMemberSearchQuery(f)
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]ExternalMemberListItem, 0)
	for rows.Next() {
		var m ExternalMemberListItem
		if err := rows.Scan(&m.ID, &m.Email, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func externalMemberSearchQuery(f ExternalMemberFilter) (string, []any) {
	const base = `SELECT id, email, role, created_at FROM external_members`
	switch {
	case strings.TrimSpace(f.Email) != "":
		return base + ` WHERE email LIKE $1 ORDER BY created_at`, []any{likePattern(f.Email)}
	case strings.TrimSpace(f.CreateDate) != "":
		return base + ` WHERE created_at::date = $1 ORDER BY created_at`, []any{strings.TrimSpace(f.CreateDate)}
	default:
		return base + ` ORDER BY created_at`, nil
	}
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
