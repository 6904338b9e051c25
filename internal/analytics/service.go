package analytics

import (
	"context"
	"fmt"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// clampLimit bounds a caller-supplied limit to [1, 100], falling back to
// the default when unset.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func (s *Service) TopSongs(ctx context.Context, limit int) ([]TopSong, error) {
	songs, err := s.repo.TopSongs(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}
	return songs, nil
}

func (s *Service) TopAlbums(ctx context.Context, limit int) ([]TopAlbum, error) {
	albums, err := s.repo.TopAlbums(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top albums: %w", err)
	}
	return albums, nil
}

func (s *Service) TopArtists(ctx context.Context, limit int) ([]TopArtist, error) {
	artists, err := s.repo.TopArtists(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}
	return artists, nil
}

func (s *Service) TopSongsByCountry(ctx context.Context, country string, limit int) ([]TopSong, error) {
	if country == "" {
		return nil, fmt.Errorf("country is required")
	}

	songs, err := s.repo.TopSongsByCountry(ctx, country, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top songs by country: %w", err)
	}
	return songs, nil
}

func (s *Service) MostActiveUsers(ctx context.Context, limit int) ([]ActiveUser, error) {
	users, err := s.repo.MostActiveUsers(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("most active users: %w", err)
	}
	return users, nil
}
