// Package directory provides the membership directory store: the member list
// and the conditional identity link write used by reconciliation.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcallhq/rollcall/internal/db"
)

var ErrMemberNotFound = errors.New("member not found")

// Service is the PostgreSQL-backed member directory.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates the directory service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "directory")),
	}
}

// List returns the full member snapshot ordered by handle.
func (s *Service) List(ctx context.Context) ([]Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, handle, display_name, platform_identity_id, created_at, updated_at
		FROM members
		ORDER BY handle`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, member)
	}
	return items, rows.Err()
}

// Get returns one member by id.
func (s *Service) Get(ctx context.Context, id string) (Member, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Member{}, err
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, handle, display_name, platform_identity_id, created_at, updated_at
		FROM members
		WHERE id = $1`,
		pgID,
	)
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, err
	}
	return member, nil
}

// Create inserts a new unlinked member.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Member, error) {
	handle := strings.TrimSpace(req.Handle)
	if handle == "" {
		return Member{}, fmt.Errorf("handle is required")
	}
	id, err := db.ParseUUID(uuid.NewString())
	if err != nil {
		return Member{}, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO members (id, handle, display_name)
		VALUES ($1, $2, $3)
		RETURNING id, handle, display_name, platform_identity_id, created_at, updated_at`,
		id, handle, strings.TrimSpace(req.Name),
	)
	member, err := scanMember(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Member{}, fmt.Errorf("handle %q already exists", handle)
		}
		return Member{}, err
	}
	return member, nil
}

// LinkIdentity ties a platform identity to a member only if the member is
// currently unlinked: a compare-and-set, so two concurrent reconciliation
// runs cannot both claim the same member or the same identity.
func (s *Service) LinkIdentity(ctx context.Context, memberID, identityID string) (LinkStatus, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return "", fmt.Errorf("identity id is required")
	}
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return "", err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE members
		SET platform_identity_id = $2, updated_at = now()
		WHERE id = $1 AND platform_identity_id IS NULL`,
		pgID, identityID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			// The identity was claimed by another member concurrently; the
			// partial unique index keeps the one-to-one invariant.
			return LinkAlreadyLinked, nil
		}
		return "", err
	}
	if tag.RowsAffected() == 1 {
		return LinkApplied, nil
	}

	// Nothing updated: the member is gone or was linked between our snapshot
	// and this write.
	var existing pgtype.Text
	err = s.pool.QueryRow(ctx, `SELECT platform_identity_id FROM members WHERE id = $1`, pgID).Scan(&existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LinkNotFound, nil
		}
		return "", err
	}
	return LinkAlreadyLinked, nil
}

// Unlink clears the platform identity of a member, for manual corrections.
func (s *Service) Unlink(ctx context.Context, memberID string) error {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE members
		SET platform_identity_id = NULL, updated_at = now()
		WHERE id = $1`,
		pgID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func scanMember(row pgx.Row) (Member, error) {
	var (
		m         Member
		pgID      pgtype.UUID
		name      pgtype.Text
		identity  pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&pgID, &m.Handle, &name, &identity, &createdAt, &updatedAt); err != nil {
		return Member{}, err
	}
	if value, err := pgID.Value(); err == nil {
		m.ID, _ = value.(string)
	}
	if name.Valid {
		m.Name = name.String
	}
	if identity.Valid {
		m.PlatformIdentityID = identity.String
	}
	m.CreatedAt = db.TimeFromPg(createdAt)
	m.UpdatedAt = db.TimeFromPg(updatedAt)
	return m, nil
}
