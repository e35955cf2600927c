// Package cursor provides opaque resume-token encoding for score-event
// queries: observers hand the token back to continue from the last event
// they saw.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor marks a position in a game's score journal.
type Cursor struct {
	// GameID scopes the token to one game's journal.
	GameID int64 `json:"game_id"`
	// Seq is the last sequence number already seen; listing resumes after it.
	Seq uint64 `json:"seq"`
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque base64 string to a cursor. Returns an error if the
// token is malformed.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.GameID <= 0 {
		return Cursor{}, fmt.Errorf("invalid cursor game id: %d", c.GameID)
	}
	return c, nil
}
