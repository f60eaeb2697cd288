package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/canvas"
	"github.com/go-playground/validator/v10"
)

// Inbound event names.
const (
	eventJoinRoom    = "join_room"
	eventLeaveRoom   = "leave_room"
	eventDrawingStep = "drawing_step"
	eventCursorMove  = "cursor_move"
	eventUndo        = "undo"
	eventRedo        = "redo"
	eventClearCanvas = "clear_canvas"
)

var (
	errMalformedFrame   = errors.New("malformed frame")
	errUnknownEvent     = errors.New("unknown event")
	errMalformedPayload = errors.New("malformed payload")
	payloadValidator    = validator.New()
)

type pointPayload struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type stylePayload struct {
	Color    string  `json:"color" validate:"max=64"`
	Width    float64 `json:"width" validate:"gt=0"`
	IsEraser bool    `json:"isEraser"`
}

type drawingStepPayload struct {
	ID    string        `json:"id" validate:"required,max=190"`
	Start *pointPayload `json:"start" validate:"required"`
	End   *pointPayload `json:"end" validate:"required"`
	Style *stylePayload `json:"style" validate:"required"`
}

func (p *pointPayload) point() canvas.Point {
	return canvas.Point{X: *p.X, Y: *p.Y}
}

func decodeEnvelope(frame []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	if envelope.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", errMalformedFrame)
	}
	return envelope, nil
}

func decodeRoomID(data json.RawMessage) (canvas.RoomID, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	roomID, err := canvas.NewRoomID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	return roomID, nil
}

func decodeStroke(data json.RawMessage) (canvas.Stroke, error) {
	var payload drawingStepPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return canvas.Stroke{}, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	if err := payloadValidator.Struct(payload); err != nil {
		return canvas.Stroke{}, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	gestureID, err := canvas.NewGestureID(payload.ID)
	if err != nil {
		return canvas.Stroke{}, fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	stroke := canvas.Stroke{
		GestureID: gestureID,
		Start:     payload.Start.point(),
		End:       payload.End.point(),
		Style: canvas.Style{
			Color:    payload.Style.Color,
			Width:    payload.Style.Width,
			IsEraser: payload.Style.IsEraser,
		},
	}
	if err := stroke.Validate(); err != nil {
		return canvas.Stroke{}, fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	return stroke, nil
}

func decodePoint(data json.RawMessage) (canvas.Point, error) {
	var payload pointPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return canvas.Point{}, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	if err := payloadValidator.Struct(payload); err != nil {
		return canvas.Point{}, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	point := payload.point()
	if err := point.Validate(); err != nil {
		return canvas.Point{}, fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	return point, nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, errUnknownEvent):
		return "unknown_event"
	default:
		return "malformed_payload"
	}
}
