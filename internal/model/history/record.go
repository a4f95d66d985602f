package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// InputKind 标识触发一次交互的输入来源。
type InputKind string

const (
	InputText InputKind = "text"
	InputFile InputKind = "file"
)

// Valid reports whether k is a known input kind.
func (k InputKind) Valid() bool {
	return k == InputText || k == InputFile
}

// Liked is a tri-state rating. The zero value means the user has not rated the record.
type Liked int8

const (
	LikedUnset Liked = iota
	LikedYes
	LikedNo
)

// LikedFromPtr converts a JSON-style optional bool into a Liked value.
func LikedFromPtr(v *bool) Liked {
	switch {
	case v == nil:
		return LikedUnset
	case *v:
		return LikedYes
	default:
		return LikedNo
	}
}

// Ptr returns the optional bool form used on the wire.
func (l Liked) Ptr() *bool {
	switch l {
	case LikedYes:
		v := true
		return &v
	case LikedNo:
		v := false
		return &v
	default:
		return nil
	}
}

func (l Liked) String() string {
	switch l {
	case LikedYes:
		return "liked"
	case LikedNo:
		return "disliked"
	default:
		return "unset"
	}
}

// MarshalJSON encodes unset as null so it never reads back as a dislike.
func (l Liked) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Ptr())
}

// UnmarshalJSON accepts null, true or false.
func (l *Liked) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = LikedUnset
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("liked must be true, false or null: %w", err)
	}
	*l = LikedFromPtr(&v)
	return nil
}

// Annotations are the only record fields a user may change after creation.
type Annotations struct {
	Liked      Liked
	Bookmarked bool
}

// SetLiked returns a mutator that sets the rating.
func SetLiked(v Liked) func(*Annotations) {
	return func(a *Annotations) { a.Liked = v }
}

// ToggleBookmark returns a mutator that flips the bookmark flag.
func ToggleBookmark() func(*Annotations) {
	return func(a *Annotations) { a.Bookmarked = !a.Bookmarked }
}

// SetBookmarked returns a mutator that sets the bookmark flag.
func SetBookmarked(v bool) func(*Annotations) {
	return func(a *Annotations) { a.Bookmarked = v }
}

// Record captures one completed interaction of a feature area.
type Record[R any, M any] struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	InputPayload string    `json:"inputPayload"`
	InputKind    InputKind `json:"inputKind"`
	Result       R         `json:"result"`
	Metrics      M         `json:"derivedMetrics"`
	Liked        Liked     `json:"liked"`
	Bookmarked   bool      `json:"bookmarked"`
	Tag          string    `json:"tag,omitempty"`
	Failed       bool      `json:"failed,omitempty"`
}

// Annotations returns the mutable part of the record.
func (r Record[R, M]) Annotations() Annotations {
	return Annotations{Liked: r.Liked, Bookmarked: r.Bookmarked}
}

// WithAnnotations returns a copy of r carrying a.
func (r Record[R, M]) WithAnnotations(a Annotations) Record[R, M] {
	r.Liked = a.Liked
	r.Bookmarked = a.Bookmarked
	return r
}

// Timestamp normalizes t so that it survives a JSON round trip unchanged.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Round(0)
}
