package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rcliao/hole-sync/internal/metric"
)

// ErrSchema is returned when a server payload does not match its record type.
var ErrSchema = errors.New("schema mismatch")

// Ownership says whether solutions are being recorded against an account.
type Ownership uint8

const (
	Anonymous Ownership = iota
	LoggedIn
)

func (o Ownership) String() string {
	if o == LoggedIn {
		return "logged-in"
	}
	return "anonymous"
}

func (o Ownership) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// SubmitRequest is the body posted for a run.
type SubmitRequest struct {
	Code string `json:"Code"`
	Hole string `json:"Hole"`
	Lang string `json:"Lang"`
}

// Cheevo is an achievement earned by a submission.
type Cheevo struct {
	Emoji string `json:"emoji"`
	Name  string `json:"name"`
}

// SubmitResponse is the verdict returned for a run.
type SubmitResponse struct {
	Pass     bool     `json:"Pass"`
	Out      string   `json:"Out"`
	Exp      string   `json:"Exp"`
	Err      string   `json:"Err"`
	Argv     []string `json:"Argv"`
	Cheevos  []Cheevo `json:"Cheevos"`
	LoggedIn bool     `json:"LoggedIn"`
}

type rawSubmitResponse struct {
	Pass     *bool           `json:"Pass"`
	Out      *string         `json:"Out"`
	Exp      *string         `json:"Exp"`
	Err      *string         `json:"Err"`
	Argv     json.RawMessage `json:"Argv"`
	Cheevos  json.RawMessage `json:"Cheevos"`
	LoggedIn *bool           `json:"LoggedIn"`
}

// DecodeSubmitResponse strictly decodes a verdict. Every field must be
// present and no unknown fields are allowed. A null Argv or Cheevos list is
// accepted as empty.
func DecodeSubmitResponse(r io.Reader) (*SubmitResponse, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var raw rawSubmitResponse
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	var missing []string
	if raw.Pass == nil {
		missing = append(missing, "Pass")
	}
	if raw.Out == nil {
		missing = append(missing, "Out")
	}
	if raw.Exp == nil {
		missing = append(missing, "Exp")
	}
	if raw.Err == nil {
		missing = append(missing, "Err")
	}
	if raw.Argv == nil {
		missing = append(missing, "Argv")
	}
	if raw.Cheevos == nil {
		missing = append(missing, "Cheevos")
	}
	if raw.LoggedIn == nil {
		missing = append(missing, "LoggedIn")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrSchema, strings.Join(missing, ", "))
	}
	res := &SubmitResponse{
		Pass:     *raw.Pass,
		Out:      *raw.Out,
		Exp:      *raw.Exp,
		Err:      *raw.Err,
		LoggedIn: *raw.LoggedIn,
		Argv:     []string{},
		Cheevos:  []Cheevo{},
	}
	if err := json.Unmarshal(raw.Argv, &res.Argv); err != nil {
		return nil, fmt.Errorf("%w: Argv: %v", ErrSchema, err)
	}
	if err := json.Unmarshal(raw.Cheevos, &res.Cheevos); err != nil {
		return nil, fmt.Errorf("%w: Cheevos: %v", ErrSchema, err)
	}
	if res.Argv == nil {
		res.Argv = []string{}
	}
	if res.Cheevos == nil {
		res.Cheevos = []Cheevo{}
	}
	return res, nil
}

// Golfer identifies a rankings entrant.
type Golfer struct {
	Name string `json:"name"`
}

// RankingRow is one entry of a rankings query. Nil counts mean the golfer
// has no solution under that metric.
type RankingRow struct {
	Rank       int    `json:"rank"`
	Golfer     Golfer `json:"golfer"`
	Bytes      *int   `json:"bytes"`
	Chars      *int   `json:"chars"`
	CharsBytes *int   `json:"chars_bytes"`
	BytesChars *int   `json:"bytes_chars"`
	Me         bool   `json:"me"`
}

// Tooltip describes the golfer's solution for m, e.g.
// "Bytes solution is 1,024 bytes, 980 chars." It is empty when the golfer
// has no solution under m.
func (r RankingRow) Tooltip(m metric.Metric) string {
	bytes, chars := r.Bytes, r.BytesChars
	if m == metric.Chars {
		bytes, chars = r.CharsBytes, r.Chars
	}
	if bytes == nil {
		return ""
	}

	s := m.String() + " solution is " + humanize.Comma(int64(*bytes)) + " bytes"
	if chars != nil {
		return s + ", " + humanize.Comma(int64(*chars)) + " chars."
	}
	return s + "."
}

// Snapshot holds the best known code per language for each metric.
type Snapshot = metric.Pair[map[string]string]

// NewSnapshot returns an empty snapshot with both maps allocated.
func NewSnapshot() Snapshot {
	return Snapshot{map[string]string{}, map[string]string{}}
}

// DecodeSnapshot reads a snapshot encoded as a two element JSON array of
// language to code maps, bytes first.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var raw []map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if len(raw) != 2 {
		return Snapshot{}, fmt.Errorf("%w: expected 2 solution maps, got %d", ErrSchema, len(raw))
	}
	snap := NewSnapshot()
	for _, m := range metric.All {
		for lang, code := range raw[m.Index()] {
			if code != "" {
				snap.Get(m)[lang] = code
			}
		}
	}
	return snap, nil
}

// Rankings views.
const (
	ViewTop       = "top"
	ViewMe        = "me"
	ViewFollowing = "following"
)

// RankingsQuery selects a mini-rankings table.
type RankingsQuery struct {
	Hole   string        `json:"hole"`
	Lang   string        `json:"lang"`
	Metric metric.Metric `json:"metric"`
	View   string        `json:"view"`
}

// NormalizeView maps unknown views to ViewTop.
func NormalizeView(v string) string {
	switch v {
	case ViewMe, ViewFollowing:
		return v
	}
	return ViewTop
}
