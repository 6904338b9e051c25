package analytics

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repo is the read-only view over the warehouse: ranked aggregations
// over the fact table joined to dimensions.
type Repo interface {
	TopSongs(ctx context.Context, limit int) ([]TopSong, error)
	TopAlbums(ctx context.Context, limit int) ([]TopAlbum, error)
	TopArtists(ctx context.Context, limit int) ([]TopArtist, error)
	TopSongsByCountry(ctx context.Context, country string, limit int) ([]TopSong, error)
	MostActiveUsers(ctx context.Context, limit int) ([]ActiveUser, error)
}

type WarehouseReader struct {
	db *sqlx.DB
}

func NewWarehouseReader(db *sqlx.DB) Repo {
	return &WarehouseReader{db: db}
}

func (r *WarehouseReader) TopSongs(ctx context.Context, limit int) ([]TopSong, error) {
	query := `
		SELECT ds.title, da.albumimageurl, COUNT(*) AS play_count
		FROM factsongplayed f
		JOIN dimsong ds ON f.songid = ds.id
		JOIN dimalbum da ON f.albumid = da.id
		GROUP BY ds.title, da.albumimageurl
		ORDER BY play_count DESC
		LIMIT $1
	`

	var songs []TopSong
	if err := r.db.SelectContext(ctx, &songs, query, limit); err != nil {
		return nil, fmt.Errorf("select top songs: %w", err)
	}

	return songs, nil
}

func (r *WarehouseReader) TopAlbums(ctx context.Context, limit int) ([]TopAlbum, error) {
	query := `
		SELECT da.name, da.albumimageurl, COUNT(*) AS play_count
		FROM factsongplayed f
		JOIN dimalbum da ON f.albumid = da.id
		GROUP BY da.name, da.albumimageurl
		ORDER BY play_count DESC
		LIMIT $1
	`

	var albums []TopAlbum
	if err := r.db.SelectContext(ctx, &albums, query, limit); err != nil {
		return nil, fmt.Errorf("select top albums: %w", err)
	}

	return albums, nil
}

func (r *WarehouseReader) TopArtists(ctx context.Context, limit int) ([]TopArtist, error) {
	query := `
		SELECT da.artistname, da.imageurl, COUNT(*) AS play_count
		FROM factsongplayed f
		JOIN dimartist da ON f.artistid = da.id
		GROUP BY da.artistname, da.imageurl
		ORDER BY play_count DESC
		LIMIT $1
	`

	var artists []TopArtist
	if err := r.db.SelectContext(ctx, &artists, query, limit); err != nil {
		return nil, fmt.Errorf("select top artists: %w", err)
	}

	return artists, nil
}

func (r *WarehouseReader) TopSongsByCountry(ctx context.Context, country string, limit int) ([]TopSong, error) {
	query := `
		SELECT ds.title, da.albumimageurl, COUNT(*) AS play_count
		FROM factsongplayed f
		JOIN dimsong ds ON f.songid = ds.id
		JOIN dimalbum da ON f.albumid = da.id
		JOIN dimlocation dl ON f.locationid = dl.id
		WHERE dl.country = $1
		GROUP BY ds.title, da.albumimageurl
		ORDER BY play_count DESC
		LIMIT $2
	`

	var songs []TopSong
	if err := r.db.SelectContext(ctx, &songs, query, country, limit); err != nil {
		return nil, fmt.Errorf("select top songs by country: %w", err)
	}

	return songs, nil
}

func (r *WarehouseReader) MostActiveUsers(ctx context.Context, limit int) ([]ActiveUser, error) {
	query := `
		SELECT du.username, COUNT(*) AS play_count
		FROM factsongplayed f
		JOIN dimuser du ON f.userid = du.id
		GROUP BY du.username
		ORDER BY play_count DESC
		LIMIT $1
	`

	var users []ActiveUser
	if err := r.db.SelectContext(ctx, &users, query, limit); err != nil {
		return nil, fmt.Errorf("select most active users: %w", err)
	}

	return users, nil
}
