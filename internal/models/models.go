package models

import "time"

// PlayEventMessage is the raw "song played" payload consumed from Kafka.
type PlayEventMessage struct {
	UserID         string `json:"User_Id"`
	SongID         string `json:"Song_Id"`
	PlayedAt       string `json:"Played_At"`
	DurationPlayed *int   `json:"Duration_Played,omitempty"`
}

// UserProfile is the flattened result of a profile-service lookup.
type UserProfile struct {
	AuthID   string
	Username string
	Birthday string
	City     string
	Country  string
}

type AlbumMetadata struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

type ArtistMetadata struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// SongMetadata is the catalog-service view of a song. Only the first
// artist is recorded in the warehouse.
type SongMetadata struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Duration    int              `json:"duration"`
	TrackNumber int              `json:"track_number"`
	CreatedAt   string           `json:"created_at"`
	Album       AlbumMetadata    `json:"album"`
	Artists     []ArtistMetadata `json:"artists"`
}

// TimeDimension holds the calendar attributes derived from a play
// timestamp. ID is the YYYYMMDD date key and doubles as the natural key.
type TimeDimension struct {
	ID        int
	Date      time.Time
	Day       int
	Month     int
	Year      int
	DayOfWeek int
	IsWeekend bool
	Quarter   int
}

// PlayRecord is one fully enriched play, ready to be written to the
// warehouse as dimension rows plus a single fact row.
type PlayRecord struct {
	Profile        UserProfile
	Song           SongMetadata
	Time           TimeDimension
	PlayedAt       time.Time
	DurationPlayed *int
}
