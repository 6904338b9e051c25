package analytics

type TopSong struct {
	Title         string `db:"title" json:"title"`
	AlbumImageURL string `db:"albumimageurl" json:"album_image_url"`
	Plays         int64  `db:"play_count" json:"plays"`
}

type TopAlbum struct {
	Album         string `db:"name" json:"album"`
	AlbumImageURL string `db:"albumimageurl" json:"album_image_url"`
	Plays         int64  `db:"play_count" json:"plays"`
}

type TopArtist struct {
	Artist   string `db:"artistname" json:"artist"`
	ImageURL string `db:"imageurl" json:"image_url"`
	Plays    int64  `db:"play_count" json:"plays"`
}

type ActiveUser struct {
	User  string `db:"username" json:"user"`
	Plays int64  `db:"play_count" json:"plays"`
}
