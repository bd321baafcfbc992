// Package ratings keeps the per-user vote ledger: one row per
// (song, user), flipped in place when a user changes their mind.
package ratings

import (
	"context"
	"database/sql"

	"github.com/radiowave/backend/config"
	"github.com/radiowave/backend/datastore"
)

const (
	ThumbsUp   = "thumbs_up"
	ThumbsDown = "thumbs_down"
)

// Rating is a vote as submitted by the player client. UserID is an opaque
// client-generated fingerprint, not a reference to the users table.
type Rating struct {
	SongID     string `json:"song_id"`
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	RatingType string `json:"rating_type"`
	UserID     string `json:"user_id"`
}

// Counts is the tally for one song, with zero defaults for absent types.
type Counts struct {
	ThumbsUp   int64 `json:"thumbs_up"`
	ThumbsDown int64 `json:"thumbs_down"`
}

// SubmitResult reports whether an existing vote was flipped or a new one
// inserted; ID is only valid for inserts, and only when the backend could
// report it.
type SubmitResult struct {
	Updated bool
	ID      sql.NullInt64
}

// ValidationError rejects malformed input; handlers answer it with a 400.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// ConflictError rejects a repeat vote of the same type; also a 400.
type ConflictError string

func (e ConflictError) Error() string { return string(e) }

// Querier is the slice of the datastore contract the ledger needs. Type
// drives placeholder style: the store never rewrites SQL, so this package
// builds backend-appropriate text itself.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]datastore.Row, error)
	Get(ctx context.Context, query string, args ...any) (datastore.Row, error)
	Run(ctx context.Context, query string, args ...any) (datastore.RunResult, error)
	Type() config.DBType
}

type Service struct {
	db Querier
}

func NewService(db Querier) *Service {
	return &Service{db: db}
}

// Submit records a vote. An existing vote of a different type is updated
// in place; a repeat vote of the same type is a ConflictError.
//
// The lookup and the write are two round trips, not a transaction. Two
// concurrent first-votes for the same (song, user) can both see "not
// found" and race to insert; the UNIQUE(song_id, user_id) constraint
// fails the loser with a QueryError rather than the conflict message.
func (s *Service) Submit(ctx context.Context, r Rating) (SubmitResult, error) {
	if r.SongID == "" || r.Artist == "" || r.Title == "" || r.RatingType == "" || r.UserID == "" {
		return SubmitResult{}, ValidationError("All fields are required")
	}
	if r.RatingType != ThumbsUp && r.RatingType != ThumbsDown {
		return SubmitResult{}, ValidationError("Invalid rating type")
	}

	selectSQL := "SELECT id, rating_type FROM ratings WHERE song_id = ? AND user_id = ?"
	if s.db.Type() == config.DBTypePostgres {
		selectSQL = "SELECT id, rating_type FROM ratings WHERE song_id = $1 AND user_id = $2"
	}
	existing, err := s.db.Get(ctx, selectSQL, r.SongID, r.UserID)
	if err != nil {
		return SubmitResult{}, err
	}

	if existing != nil {
		if asString(existing["rating_type"]) == r.RatingType {
			return SubmitResult{}, ConflictError("You have already rated this song")
		}

		updateSQL := "UPDATE ratings SET rating_type = ? WHERE song_id = ? AND user_id = ?"
		if s.db.Type() == config.DBTypePostgres {
			updateSQL = "UPDATE ratings SET rating_type = $1 WHERE song_id = $2 AND user_id = $3"
		}
		if _, err := s.db.Run(ctx, updateSQL, r.RatingType, r.SongID, r.UserID); err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Updated: true}, nil
	}

	insertSQL := "INSERT INTO ratings (song_id, artist, title, rating_type, user_id) VALUES (?, ?, ?, ?, ?)"
	if s.db.Type() == config.DBTypePostgres {
		insertSQL = "INSERT INTO ratings (song_id, artist, title, rating_type, user_id) VALUES ($1, $2, $3, $4, $5) RETURNING id"
	}
	res, err := s.db.Run(ctx, insertSQL, r.SongID, r.Artist, r.Title, r.RatingType, r.UserID)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{ID: res.InsertID}, nil
}

// Tally counts a song's votes grouped by type.
func (s *Service) Tally(ctx context.Context, songID string) (Counts, error) {
	query := "SELECT rating_type, COUNT(*) as count FROM ratings WHERE song_id = ? GROUP BY rating_type"
	if s.db.Type() == config.DBTypePostgres {
		query = "SELECT rating_type, COUNT(*) as count FROM ratings WHERE song_id = $1 GROUP BY rating_type"
	}
	rows, err := s.db.Query(ctx, query, songID)
	if err != nil {
		return Counts{}, err
	}

	var counts Counts
	for _, row := range rows {
		n, ok := datastore.AsInt64(row["count"])
		if !ok {
			continue
		}
		switch asString(row["rating_type"]) {
		case ThumbsUp:
			counts.ThumbsUp = n
		case ThumbsDown:
			counts.ThumbsDown = n
		}
	}
	return counts, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}
