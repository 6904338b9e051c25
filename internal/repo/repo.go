package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Aleph-Project/Aleph/internal/models"
	"github.com/Aleph-Project/Aleph/internal/repo/interfaces"
)

// DimensionSpec describes one dimension table: its name, the columns
// forming the natural key, and the full insert column list. Specs are a
// closed, package-level set; table and column identifiers never come
// from caller data, only values do.
type DimensionSpec struct {
	Table       string
	NaturalKeys []string
	Columns     []string
}

var (
	userDim = DimensionSpec{
		Table:       "dimuser",
		NaturalKeys: []string{"authid"},
		Columns:     []string{"authid", "username", "birthdate"},
	}
	songDim = DimensionSpec{
		Table:       "dimsong",
		NaturalKeys: []string{"songid"},
		Columns:     []string{"songid", "title", "duration", "tracknumber", "createdat"},
	}
	albumDim = DimensionSpec{
		Table:       "dimalbum",
		NaturalKeys: []string{"albumid"},
		Columns:     []string{"albumid", "name", "albumimageurl"},
	}
	artistDim = DimensionSpec{
		Table:       "dimartist",
		NaturalKeys: []string{"artistid"},
		Columns:     []string{"artistid", "artistname", "imageurl"},
	}
	locationDim = DimensionSpec{
		Table:       "dimlocation",
		NaturalKeys: []string{"city", "country"},
		Columns:     []string{"city", "country"},
	}
	// The time dimension's date key is both surrogate and natural key.
	timeDim = DimensionSpec{
		Table:       "dimtime",
		NaturalKeys: []string{"id"},
		Columns:     []string{"id", "date", "day", "month", "year", "dayofweek", "isweekend", "quarter"},
	}
)

type WarehouseRepo struct {
	db *sqlx.DB
}

func NewWarehouseRepo(db *sqlx.DB) interfaces.WarehouseRepo {
	return &WarehouseRepo{db: db}
}

func (r *WarehouseRepo) RecordPlay(ctx context.Context, play *models.PlayRecord) error {
	if len(play.Song.Artists) == 0 {
		return fmt.Errorf("play record for song %s has no artist", play.Song.ID)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	userID, err := resolveDimension(ctx, tx, userDim, map[string]any{
		"authid":    play.Profile.AuthID,
		"username":  play.Profile.Username,
		"birthdate": parseBirthdate(play.Profile.Birthday),
	})
	if err != nil {
		return fmt.Errorf("resolve user dimension: %w", err)
	}

	songID, err := resolveDimension(ctx, tx, songDim, map[string]any{
		"songid":      play.Song.ID,
		"title":       play.Song.Title,
		"duration":    play.Song.Duration,
		"tracknumber": play.Song.TrackNumber,
		"createdat":   parseTimestamp(play.Song.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("resolve song dimension: %w", err)
	}

	albumID, err := resolveDimension(ctx, tx, albumDim, map[string]any{
		"albumid":       play.Song.Album.ID,
		"name":          play.Song.Album.Title,
		"albumimageurl": play.Song.Album.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("resolve album dimension: %w", err)
	}

	artist := play.Song.Artists[0]
	artistID, err := resolveDimension(ctx, tx, artistDim, map[string]any{
		"artistid":   artist.ID,
		"artistname": artist.Name,
		"imageurl":   artist.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("resolve artist dimension: %w", err)
	}

	locationID, err := resolveDimension(ctx, tx, locationDim, map[string]any{
		"city":    play.Profile.City,
		"country": play.Profile.Country,
	})
	if err != nil {
		return fmt.Errorf("resolve location dimension: %w", err)
	}

	timeID, err := resolveDimension(ctx, tx, timeDim, map[string]any{
		"id":        play.Time.ID,
		"date":      play.Time.Date,
		"day":       play.Time.Day,
		"month":     play.Time.Month,
		"year":      play.Time.Year,
		"dayofweek": play.Time.DayOfWeek,
		"isweekend": play.Time.IsWeekend,
		"quarter":   play.Time.Quarter,
	})
	if err != nil {
		return fmt.Errorf("resolve time dimension: %w", err)
	}

	factQuery := `
	INSERT INTO factsongplayed (
		userid, songid, artistid, timeid, locationid, albumid, durationplayed, playedat
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (userid, songid, playedat) DO NOTHING
	`

	_, err = tx.ExecContext(ctx, factQuery,
		userID,
		songID,
		artistID,
		timeID,
		locationID,
		albumID,
		play.DurationPlayed,
		play.PlayedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fact row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// resolveDimension implements get-or-create against one dimension table:
// look up the row by natural key and return its surrogate key, inserting
// it first when absent. Concurrent inserts of the same natural key are
// resolved by the unique constraint plus a re-select, so the same key
// can never yield two surrogate keys.
func resolveDimension(ctx context.Context, tx *sqlx.Tx, spec DimensionSpec, values map[string]any) (int64, error) {
	id, err := selectDimension(ctx, tx, spec, values)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("select %s: %w", spec.Table, err)
	}

	insertQuery := buildInsert(spec)
	args := make([]any, 0, len(spec.Columns))
	for _, col := range spec.Columns {
		args = append(args, values[col])
	}

	err = tx.QueryRowxContext(ctx, insertQuery, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("insert %s: %w", spec.Table, err)
	}

	// ON CONFLICT DO NOTHING returned no row: another instance won the
	// race, the row exists now.
	id, err = selectDimension(ctx, tx, spec, values)
	if err != nil {
		return 0, fmt.Errorf("re-select %s after conflict: %w", spec.Table, err)
	}

	return id, nil
}

func selectDimension(ctx context.Context, tx *sqlx.Tx, spec DimensionSpec, values map[string]any) (int64, error) {
	query := buildSelect(spec)
	args := make([]any, 0, len(spec.NaturalKeys))
	for _, key := range spec.NaturalKeys {
		args = append(args, values[key])
	}

	var id int64
	err := tx.QueryRowxContext(ctx, query, args...).Scan(&id)
	return id, err
}

func buildSelect(spec DimensionSpec) string {
	conditions := make([]string, len(spec.NaturalKeys))
	for i, key := range spec.NaturalKeys {
		conditions[i] = fmt.Sprintf("%s = $%d", key, i+1)
	}
	return fmt.Sprintf("SELECT id FROM %s WHERE %s", spec.Table, strings.Join(conditions, " AND "))
}

func buildInsert(spec DimensionSpec) string {
	placeholders := make([]string, len(spec.Columns))
	for i := range spec.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING RETURNING id",
		spec.Table,
		strings.Join(spec.Columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(spec.NaturalKeys, ", "),
	)
}

func parseBirthdate(birthday string) any {
	t, err := time.Parse("2006-01-02", birthday)
	if err != nil {
		return nil
	}
	return t
}

func parseTimestamp(ts string) any {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil
	}
	return t
}
