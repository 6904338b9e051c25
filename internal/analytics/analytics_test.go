package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	lastLimit   int
	lastCountry string
	err         error
}

func (f *fakeRepo) TopSongs(ctx context.Context, limit int) ([]TopSong, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []TopSong{{Title: "Entre Rios", AlbumImageURL: "http://img/1", Plays: 42}}, nil
}

func (f *fakeRepo) TopAlbums(ctx context.Context, limit int) ([]TopAlbum, error) {
	f.lastLimit = limit
	return []TopAlbum{{Album: "Aleph", Plays: 7}}, f.err
}

func (f *fakeRepo) TopArtists(ctx context.Context, limit int) ([]TopArtist, error) {
	f.lastLimit = limit
	return []TopArtist{{Artist: "Los Rios", Plays: 12}}, f.err
}

func (f *fakeRepo) TopSongsByCountry(ctx context.Context, country string, limit int) ([]TopSong, error) {
	f.lastCountry = country
	f.lastLimit = limit
	return []TopSong{{Title: "Entre Rios", Plays: 3}}, f.err
}

func (f *fakeRepo) MostActiveUsers(ctx context.Context, limit int) ([]ActiveUser, error) {
	f.lastLimit = limit
	return []ActiveUser{{User: "margarita", Plays: 99}}, f.err
}

func newTestApp(repo Repo) *fiber.App {
	app := fiber.New()
	NewHandler(NewService(repo)).RegisterRoutes(app)
	return app
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: 10},
		{in: -5, want: 10},
		{in: 1, want: 1},
		{in: 50, want: 50},
		{in: 100, want: 100},
		{in: 101, want: 100},
		{in: 100000, want: 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, clampLimit(tt.in))
	}
}

func TestTopSongsEndpoint(t *testing.T) {
	repo := &fakeRepo{}
	app := newTestApp(repo)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/top-songs?limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, repo.lastLimit)

	body, _ := io.ReadAll(resp.Body)
	var got struct {
		Data []TopSong `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Data, 1)
	assert.Equal(t, "Entre Rios", got.Data[0].Title)
	assert.Equal(t, int64(42), got.Data[0].Plays)
}

func TestLimitIsClampedAtTheEdge(t *testing.T) {
	repo := &fakeRepo{}
	app := newTestApp(repo)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/most-active-users?limit=5000", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 100, repo.lastLimit)
}

func TestTopSongsByCountryRequiresCountry(t *testing.T) {
	app := newTestApp(&fakeRepo{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/top-songs-by-country", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTopSongsByCountryPassesCountry(t *testing.T) {
	repo := &fakeRepo{}
	app := newTestApp(repo)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/top-songs-by-country?country=Colombia", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Colombia", repo.lastCountry)
	assert.Equal(t, 10, repo.lastLimit)
}

func TestRepoErrorsReturn500(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	app := newTestApp(repo)

	for _, path := range []string{
		"/api/v1/analytics/top-songs",
		"/api/v1/analytics/top-artists",
		"/api/v1/analytics/top-albums",
		"/api/v1/analytics/most-active-users",
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
	}
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(&fakeRepo{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
