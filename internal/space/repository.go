package space

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/radif/gallery/internal/db"
)

// ErrNotFound is returned when a space does not exist.
var ErrNotFound = errors.New("space not found")

// ErrAlreadyExists is returned when the owner already has a space.
var ErrAlreadyExists = errors.New("space already exists")

const spaceColumns = `id, owner_id, name, level, max_count, max_size, total_count, total_size, created_at, updated_at`

// Repository handles all space database operations. Every method runs on
// the transaction carried by ctx when there is one.
type Repository struct {
	pool db.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSpace(row pgx.Row) (*Space, error) {
	s := &Space{}
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Level, &s.MaxCount, &s.MaxSize,
		&s.TotalCount, &s.TotalSize, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID fetches a space by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Space, error) {
	s, err := scanSpace(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+spaceColumns+` FROM spaces WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get space by id: %w", err)
	}
	return s, nil
}

// GetByOwner fetches the space owned by ownerID.
func (r *Repository) GetByOwner(ctx context.Context, ownerID string) (*Space, error) {
	s, err := scanSpace(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+spaceColumns+` FROM spaces WHERE owner_id = $1`, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get space by owner: %w", err)
	}
	return s, nil
}

// ExistsForOwner reports whether ownerID already has a space.
func (r *Repository) ExistsForOwner(ctx context.Context, ownerID string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM spaces WHERE owner_id = $1)`, ownerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check space exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new space and returns the stored record.
func (r *Repository) Create(ctx context.Context, s *Space) (*Space, error) {
	created, err := scanSpace(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO spaces (owner_id, name, level, max_count, max_size)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+spaceColumns,
		s.OwnerID, s.Name, s.Level, s.MaxCount, s.MaxSize,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create space: %w", err)
	}
	return created, nil
}

// Update writes the editable fields of s and returns the stored record.
func (r *Repository) Update(ctx context.Context, s *Space) (*Space, error) {
	updated, err := scanSpace(db.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE spaces
		 SET name = $2, level = $3, max_count = $4, max_size = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+spaceColumns,
		s.ID, s.Name, s.Level, s.MaxCount, s.MaxSize,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update space: %w", err)
	}
	return updated, nil
}

// AddUsage atomically adds to the usage counters while the space still has
// room. It reports false when no row matched: the space is missing or full.
func (r *Repository) AddUsage(ctx context.Context, id, deltaBytes, deltaCount int64) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE spaces
		 SET total_size = total_size + $2, total_count = total_count + $3, updated_at = now()
		 WHERE id = $1 AND total_count < max_count AND total_size <= max_size`,
		id, deltaBytes, deltaCount,
	)
	if err != nil {
		return false, fmt.Errorf("add space usage: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SubtractUsage atomically subtracts from the usage counters and returns
// the new totals.
func (r *Repository) SubtractUsage(ctx context.Context, id, deltaBytes, deltaCount int64) (totalSize, totalCount int64, err error) {
	err = db.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE spaces
		 SET total_size = total_size - $2, total_count = total_count - $3, updated_at = now()
		 WHERE id = $1
		 RETURNING total_size, total_count`,
		id, deltaBytes, deltaCount,
	).Scan(&totalSize, &totalCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("subtract space usage: %w", err)
	}
	return totalSize, totalCount, nil
}

// Recount recomputes the usage counters from the assets table.
func (r *Repository) Recount(ctx context.Context, id int64) (*Space, error) {
	s, err := scanSpace(db.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE spaces s
		 SET total_count = u.cnt, total_size = u.size, updated_at = now()
		 FROM (SELECT count(*) AS cnt, COALESCE(SUM(size_bytes), 0) AS size
		       FROM assets WHERE space_id = $1) u
		 WHERE s.id = $1
		 RETURNING s.id, s.owner_id, s.name, s.level, s.max_count, s.max_size,
		           s.total_count, s.total_size, s.created_at, s.updated_at`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("recount space usage: %w", err)
	}
	return s, nil
}
