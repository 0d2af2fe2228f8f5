package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/radif/gallery/internal/db"
)

// ErrNotFound is returned when an asset does not exist.
var ErrNotFound = errors.New("asset not found")

var assetColumns = []string{
	"id", "owner_id", "space_id", "url", "thumbnail_url", "name", "introduction",
	"category", "tags", "width", "height", "scale", "size_bytes", "format", "color",
	"review_status", "reviewer_id", "review_message", "reviewed_at",
	"created_at", "edited_at", "updated_at",
}

var selectList = strings.Join(assetColumns, ", ")

// sortColumns maps the sortable API field names to columns.
var sortColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"createdAt": "created_at",
	"editedAt":  "edited_at",
	"sizeBytes": "size_bytes",
	"width":     "width",
	"height":    "height",
}

// SortableField reports whether field may be used as a sort key.
func SortableField(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository handles all asset database operations. Every method runs on
// the transaction carried by ctx when there is one.
type Repository struct {
	pool db.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAsset(row pgx.Row) (*Asset, error) {
	a := &Asset{}
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.SpaceID, &a.URL, &a.ThumbnailURL, &a.Name, &a.Introduction,
		&a.Category, &a.Tags, &a.Width, &a.Height, &a.Scale, &a.SizeBytes, &a.Format, &a.Color,
		&a.ReviewStatus, &a.ReviewerID, &a.ReviewMessage, &a.ReviewedAt,
		&a.CreatedAt, &a.EditedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func collectAssets(rows pgx.Rows) ([]*Asset, error) {
	defer rows.Close()
	var out []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetByID fetches an asset by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Asset, error) {
	a, err := scanAsset(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+selectList+` FROM assets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	return a, nil
}

// Insert stores a new asset and returns the stored record.
func (r *Repository) Insert(ctx context.Context, a *Asset) (*Asset, error) {
	created, err := scanAsset(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO assets (owner_id, space_id, url, thumbnail_url, name, introduction, category, tags,
		                     width, height, scale, size_bytes, format, color,
		                     review_status, reviewer_id, review_message, reviewed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING `+selectList,
		a.OwnerID, a.SpaceID, a.URL, a.ThumbnailURL, a.Name, a.Introduction, a.Category, nonNilTags(a.Tags),
		a.Width, a.Height, a.Scale, a.SizeBytes, a.Format, a.Color,
		a.ReviewStatus, a.ReviewerID, a.ReviewMessage, a.ReviewedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return created, nil
}

// Update overwrites every mutable column of a and returns the stored record.
func (r *Repository) Update(ctx context.Context, a *Asset) (*Asset, error) {
	updated, err := scanAsset(db.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE assets
		 SET space_id = $2, url = $3, thumbnail_url = $4, name = $5, introduction = $6, category = $7,
		     tags = $8, width = $9, height = $10, scale = $11, size_bytes = $12, format = $13, color = $14,
		     review_status = $15, reviewer_id = $16, review_message = $17, reviewed_at = $18,
		     edited_at = $19, updated_at = now()
		 WHERE id = $1
		 RETURNING `+selectList,
		a.ID, a.SpaceID, a.URL, a.ThumbnailURL, a.Name, a.Introduction, a.Category,
		nonNilTags(a.Tags), a.Width, a.Height, a.Scale, a.SizeBytes, a.Format, a.Color,
		a.ReviewStatus, a.ReviewerID, a.ReviewMessage, a.ReviewedAt,
		a.EditedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update asset: %w", err)
	}
	return updated, nil
}

// Delete removes an asset. It reports false when no row existed.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete asset: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountByURL counts assets that reference url as their image or thumbnail.
func (r *Repository) CountByURL(ctx context.Context, url string) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT count(*) FROM assets WHERE url = $1 OR thumbnail_url = $1`, url,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count assets by url: %w", err)
	}
	return n, nil
}

// ListBySpaceIDs returns the assets among ids that belong to spaceID,
// ordered by id. Ids outside the space are ignored.
func (r *Repository) ListBySpaceIDs(ctx context.Context, spaceID int64, ids []int64) ([]*Asset, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+selectList+` FROM assets WHERE space_id = $1 AND id = ANY($2) ORDER BY id`,
		spaceID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets by ids: %w", err)
	}
	assets, err := collectAssets(rows)
	if err != nil {
		return nil, fmt.Errorf("scan assets by ids: %w", err)
	}
	return assets, nil
}

// ListColoredBySpace returns the assets of spaceID that have a colour.
func (r *Repository) ListColoredBySpace(ctx context.Context, spaceID int64) ([]*Asset, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+selectList+` FROM assets WHERE space_id = $1 AND color IS NOT NULL ORDER BY id`,
		spaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list colored assets: %w", err)
	}
	assets, err := collectAssets(rows)
	if err != nil {
		return nil, fmt.Errorf("scan colored assets: %w", err)
	}
	return assets, nil
}

// UpdateMetadataBatch writes name, category, and tags of every asset in one
// round trip.
func (r *Repository) UpdateMetadataBatch(ctx context.Context, assets []*Asset) error {
	if len(assets) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, a := range assets {
		b.Queue(
			`UPDATE assets SET name = $2, category = $3, tags = $4, edited_at = now(), updated_at = now() WHERE id = $1`,
			a.ID, a.Name, a.Category, nonNilTags(a.Tags),
		)
	}

	br := db.Conn(ctx, r.pool).SendBatch(ctx, b)
	for _, a := range assets {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("update asset %d metadata: %w", a.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close metadata batch: %w", err)
	}
	return nil
}

// List returns one page of assets matching q and the total match count.
func (r *Repository) List(ctx context.Context, q Query) ([]*Asset, int64, error) {
	where := whereClause(q)

	countSQL, countArgs, err := psql.Select("count(*)").From("assets").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assets: %w", err)
	}
	if total == 0 || q.Offset >= uint64(total) {
		return []*Asset{}, total, nil
	}

	order := "id"
	if col, ok := sortColumns[q.SortField]; ok {
		order = col
	}
	dir := " ASC"
	if q.Descending {
		dir = " DESC"
	}

	builder := psql.Select(assetColumns...).From("assets").Where(where).
		OrderBy(order+dir, "id"+dir).
		Offset(q.Offset)
	if q.Limit > 0 {
		builder = builder.Limit(q.Limit)
	}
	pageSQL, pageArgs, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list assets: %w", err)
	}
	assets, err := collectAssets(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan assets: %w", err)
	}
	if assets == nil {
		assets = []*Asset{}
	}
	return assets, total, nil
}

func whereClause(q Query) sq.And {
	where := sq.And{}
	if q.OwnerID != "" {
		where = append(where, sq.Eq{"owner_id": q.OwnerID})
	}
	if q.SpaceID != nil {
		where = append(where, sq.Eq{"space_id": *q.SpaceID})
	} else if q.PublicOnly {
		where = append(where, sq.Eq{"space_id": nil})
	}
	if q.SearchText != "" {
		pattern := likePattern(q.SearchText)
		where = append(where, sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"introduction": pattern},
		})
	}
	if q.Name != "" {
		where = append(where, sq.Eq{"name": q.Name})
	}
	if q.Introduction != "" {
		where = append(where, sq.ILike{"introduction": likePattern(q.Introduction)})
	}
	if q.Category != "" {
		where = append(where, sq.Eq{"category": q.Category})
	}
	if q.Format != "" {
		where = append(where, sq.Eq{"format": q.Format})
	}
	if len(q.Tags) > 0 {
		where = append(where, sq.Expr("tags @> ?", q.Tags))
	}
	if q.ReviewStatus != "" {
		where = append(where, sq.Eq{"review_status": q.ReviewStatus})
	}
	if q.ReviewerID != "" {
		where = append(where, sq.Eq{"reviewer_id": q.ReviewerID})
	}
	if q.Width > 0 {
		where = append(where, sq.Eq{"width": q.Width})
	}
	if q.Height > 0 {
		where = append(where, sq.Eq{"height": q.Height})
	}
	if q.EditedFrom != nil {
		where = append(where, sq.GtOrEq{"edited_at": *q.EditedFrom})
	}
	if q.EditedTo != nil {
		where = append(where, sq.Lt{"edited_at": *q.EditedTo})
	}
	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
