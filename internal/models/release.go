// file: internal/models/release.go
// version: 1.0.0
// guid: ab714b44-b188-4b16-9721-8259edee9778

package models

import "time"

// MediaType selects the quality table and parsing rules used for a release.
type MediaType string

const (
	MediaMovie   MediaType = "movie"
	MediaEpisode MediaType = "episode"
	MediaMusic   MediaType = "music"
	MediaBook    MediaType = "book"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	switch t {
	case MediaMovie, MediaEpisode, MediaMusic, MediaBook:
		return true
	}
	return false
}

// Protocol is the transport a release is offered over.
type Protocol string

const (
	ProtocolUsenet  Protocol = "usenet"
	ProtocolTorrent Protocol = "torrent"
)

// Candidate is one release offered by an indexer for a media query. The
// (GUID, Source) pair is unique; candidates are read-only to the core.
type Candidate struct {
	GUID        string    `json:"guid" yaml:"guid"`
	Source      string    `json:"source" yaml:"source"`
	Title       string    `json:"title" yaml:"title"`
	Size        int64     `json:"size" yaml:"size"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
	Protocol    Protocol  `json:"protocol" yaml:"protocol"`
	DownloadURL string    `json:"download_url" yaml:"download_url"`
	Seeders     *int      `json:"seeders,omitempty" yaml:"seeders,omitempty"`
	Peers       *int      `json:"peers,omitempty" yaml:"peers,omitempty"`

	// Music/book releases may carry indexer-supplied attributes.
	Artist string `json:"artist,omitempty" yaml:"artist,omitempty"`
	Album  string `json:"album,omitempty" yaml:"album,omitempty"`
	Year   int    `json:"year,omitempty" yaml:"year,omitempty"`
}

// Key returns the composite blacklist key of the candidate.
func (c Candidate) Key() ReleaseKey {
	return ReleaseKey{ReleaseID: c.GUID, Source: c.Source}
}

// ReleaseKey identifies a release within its source.
type ReleaseKey struct {
	ReleaseID string `json:"release_id"`
	Source    string `json:"source"`
}

func (k ReleaseKey) String() string {
	return k.Source + "/" + k.ReleaseID
}

// MediaRef points at the library item a release was fetched for. Exactly one
// of the ids is set.
type MediaRef struct {
	MovieID   *int64 `json:"movie_id,omitempty" yaml:"movie_id,omitempty"`
	EpisodeID *int64 `json:"episode_id,omitempty" yaml:"episode_id,omitempty"`
	AlbumID   *int64 `json:"album_id,omitempty" yaml:"album_id,omitempty"`
	BookID    *int64 `json:"book_id,omitempty" yaml:"book_id,omitempty"`
}

// MovieRef, EpisodeRef, AlbumRef and BookRef build single-target references.
func MovieRef(id int64) MediaRef   { return MediaRef{MovieID: &id} }
func EpisodeRef(id int64) MediaRef { return MediaRef{EpisodeID: &id} }
func AlbumRef(id int64) MediaRef   { return MediaRef{AlbumID: &id} }
func BookRef(id int64) MediaRef    { return MediaRef{BookID: &id} }

// Count returns how many of the ids are set.
func (r MediaRef) Count() int {
	n := 0
	for _, p := range []*int64{r.MovieID, r.EpisodeID, r.AlbumID, r.BookID} {
		if p != nil {
			n++
		}
	}
	return n
}

// Valid reports whether exactly one target is referenced.
func (r MediaRef) Valid() bool {
	return r.Count() == 1
}

// Kind and ID return the referenced target in a form usable as a storage key.
func (r MediaRef) Kind() string {
	switch {
	case r.MovieID != nil:
		return "movie"
	case r.EpisodeID != nil:
		return "episode"
	case r.AlbumID != nil:
		return "album"
	case r.BookID != nil:
		return "book"
	}
	return ""
}

func (r MediaRef) ID() int64 {
	switch {
	case r.MovieID != nil:
		return *r.MovieID
	case r.EpisodeID != nil:
		return *r.EpisodeID
	case r.AlbumID != nil:
		return *r.AlbumID
	case r.BookID != nil:
		return *r.BookID
	}
	return 0
}

// Equal compares the referenced target, not pointer identity.
func (r MediaRef) Equal(o MediaRef) bool {
	return r.Kind() == o.Kind() && r.ID() == o.ID()
}

// NewMediaRef rebuilds a reference from its storage form.
func NewMediaRef(kind string, id int64) MediaRef {
	switch kind {
	case "movie":
		return MovieRef(id)
	case "episode":
		return EpisodeRef(id)
	case "album":
		return AlbumRef(id)
	case "book":
		return BookRef(id)
	}
	return MediaRef{}
}
