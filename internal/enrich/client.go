package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Aleph-Project/Aleph/internal/models"
)

const songQuery = `query GetSongById($id: ID!) { song(id: $id) { id title duration track_number created_at album { id title image_url } artists { id name image_url } } }`

// Enricher resolves the opaque identifiers carried by a play event into
// profile and catalog metadata. Both lookups fail closed: any transport
// error, non-success status, or malformed body is reported as an error
// and the caller must drop the event.
type Enricher interface {
	GetUserProfile(ctx context.Context, authID string) (*models.UserProfile, error)
	GetSongByID(ctx context.Context, songID string) (*models.SongMetadata, error)
}

type Client struct {
	profileBaseURL string
	catalogBaseURL string
	profileClient  *http.Client
	catalogClient  *http.Client
}

func NewClient(profileBaseURL, catalogBaseURL string) *Client {
	return &Client{
		profileBaseURL: profileBaseURL,
		catalogBaseURL: catalogBaseURL,
		profileClient:  &http.Client{Timeout: 15 * time.Second},
		catalogClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

type profileResponse struct {
	Profile struct {
		AuthID   string `json:"auth_id"`
		Name     string `json:"name"`
		Birthday string `json:"birthday"`
		City     struct {
			Name    string `json:"name"`
			Country struct {
				Name string `json:"name"`
			} `json:"country"`
		} `json:"city"`
	} `json:"profile"`
}

func (c *Client) GetUserProfile(ctx context.Context, authID string) (*models.UserProfile, error) {
	url := fmt.Sprintf("%s/api/v1/profiles/my-profile/%s", c.profileBaseURL, authID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create profile request: %w", err)
	}

	resp, err := c.profileClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read profile response: %w", err)
	}

	var pr profileResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("unmarshal profile response: %w", err)
	}

	if pr.Profile.AuthID == "" {
		return nil, fmt.Errorf("profile not found for auth id %s", authID)
	}

	return &models.UserProfile{
		AuthID:   pr.Profile.AuthID,
		Username: pr.Profile.Name,
		Birthday: pr.Profile.Birthday,
		City:     pr.Profile.City.Name,
		Country:  pr.Profile.City.Country.Name,
	}, nil
}

type songResponse struct {
	Data struct {
		Song *models.SongMetadata `json:"song"`
	} `json:"data"`
}

func (c *Client) GetSongByID(ctx context.Context, songID string) (*models.SongMetadata, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     songQuery,
		"variables": map[string]string{"id": songID},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal song query: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/music/graphql", c.catalogBaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create song request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.catalogClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch song: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read song response: %w", err)
	}

	var sr songResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal song response: %w", err)
	}

	if sr.Data.Song == nil || sr.Data.Song.ID == "" {
		return nil, fmt.Errorf("song not found for id %s", songID)
	}
	if len(sr.Data.Song.Artists) == 0 {
		return nil, fmt.Errorf("song %s has no artists", songID)
	}

	return sr.Data.Song, nil
}
