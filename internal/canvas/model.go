package canvas

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	maxIdentifierLength = 190
	maxStrokeWidth      = 512
)

var (
	// ErrInvalidGestureID indicates that a gesture identifier is empty or exceeds bounds.
	ErrInvalidGestureID = errors.New("canvas: invalid gesture id")
	// ErrInvalidRoomID indicates that a room identifier is empty or exceeds bounds.
	ErrInvalidRoomID = errors.New("canvas: invalid room id")
	// ErrInvalidPoint indicates that a coordinate is not a finite number.
	ErrInvalidPoint = errors.New("canvas: invalid point")
	// ErrInvalidStyle indicates that a stroke style cannot be rendered.
	ErrInvalidStyle = errors.New("canvas: invalid style")
)

// Point is a position on the drawing surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Validate rejects NaN and infinite coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
		return fmt.Errorf("%w: non-finite coordinate", ErrInvalidPoint)
	}
	return nil
}

// Style describes how a segment is painted.
type Style struct {
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	IsEraser bool    `json:"isEraser"`
}

// Validate checks the width bounds and that non-eraser strokes carry a color.
func (s Style) Validate() error {
	if math.IsNaN(s.Width) || s.Width <= 0 || s.Width > maxStrokeWidth {
		return fmt.Errorf("%w: width %v out of range", ErrInvalidStyle, s.Width)
	}
	if !s.IsEraser && strings.TrimSpace(s.Color) == "" {
		return fmt.Errorf("%w: missing color", ErrInvalidStyle)
	}
	return nil
}

// GestureID groups all segments emitted during one continuous drawing motion.
type GestureID string

// NewGestureID validates raw input and returns it unchanged as a GestureID.
// Blank and oversized identifiers are rejected; surrounding whitespace is kept.
func NewGestureID(rawInput string) (GestureID, error) {
	if strings.TrimSpace(rawInput) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidGestureID)
	}
	if len(rawInput) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidGestureID, maxIdentifierLength)
	}
	return GestureID(rawInput), nil
}

// String returns the underlying string identifier.
func (id GestureID) String() string {
	return string(id)
}

// RoomID names a collaboration session. Only string equality matters.
type RoomID string

// NewRoomID validates raw input and returns it unchanged as a RoomID.
func NewRoomID(rawInput string) (RoomID, error) {
	if strings.TrimSpace(rawInput) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRoomID)
	}
	if len(rawInput) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidRoomID, maxIdentifierLength)
	}
	return RoomID(rawInput), nil
}

// String returns the underlying string identifier.
func (id RoomID) String() string {
	return string(id)
}

// Stroke is the client-supplied part of a segment, before the server stamps it.
type Stroke struct {
	GestureID GestureID
	Start     Point
	End       Point
	Style     Style
}

// Validate checks every field of the stroke.
func (s Stroke) Validate() error {
	if _, err := NewGestureID(s.GestureID.String()); err != nil {
		return err
	}
	if err := s.Start.Validate(); err != nil {
		return err
	}
	if err := s.End.Validate(); err != nil {
		return err
	}
	return s.Style.Validate()
}

// Segment is one committed line primitive. Segments are never mutated after append.
type Segment struct {
	GestureID GestureID `json:"id"`
	Start     Point     `json:"start"`
	End       Point     `json:"end"`
	Style     Style     `json:"style"`
	UserID    string    `json:"userId"`
	Timestamp int64     `json:"timestamp"`
}

// Commit stamps a stroke with its author and server time in unix milliseconds.
func (s Stroke) Commit(userID string, timestampMillis int64) Segment {
	return Segment{
		GestureID: s.GestureID,
		Start:     s.Start,
		End:       s.End,
		Style:     s.Style,
		UserID:    userID,
		Timestamp: timestampMillis,
	}
}
