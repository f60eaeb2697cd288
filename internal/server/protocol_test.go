package server

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/canvas"
)

func TestDecodeEnvelopeRejectsMissingEvent(t *testing.T) {
	if _, err := decodeEnvelope([]byte(`{"data":"x"}`)); !errors.Is(err, errMalformedFrame) {
		t.Fatalf("expected errMalformedFrame, got %v", err)
	}
	if _, err := decodeEnvelope([]byte(`not-json`)); !errors.Is(err, errMalformedFrame) {
		t.Fatalf("expected errMalformedFrame, got %v", err)
	}
	envelope, err := decodeEnvelope([]byte(`{"event":"undo"}`))
	if err != nil || envelope.Event != eventUndo {
		t.Fatalf("unexpected result %+v, %v", envelope, err)
	}
}

func TestDecodeStrokeAcceptsZeroCoordinates(t *testing.T) {
	data := json.RawMessage(`{"id":"g1","start":{"x":0,"y":0},"end":{"x":10,"y":10},"style":{"color":"#ff0000","width":4,"isEraser":false}}`)
	stroke, err := decodeStroke(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stroke.GestureID != "g1" || stroke.End != (canvas.Point{X: 10, Y: 10}) || stroke.Style.Width != 4 {
		t.Fatalf("unexpected stroke %+v", stroke)
	}
}

func TestDecodeStrokeKeepsGestureIDAsSent(t *testing.T) {
	data := json.RawMessage(`{"id":" g1 ","start":{"x":0,"y":0},"end":{"x":1,"y":1},"style":{"color":"#000","width":2,"isEraser":false}}`)
	stroke, err := decodeStroke(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stroke.GestureID != " g1 " {
		t.Fatalf("expected gesture id %q, got %q", " g1 ", stroke.GestureID)
	}

	blank := json.RawMessage(`{"id":"   ","start":{"x":0,"y":0},"end":{"x":1,"y":1},"style":{"color":"#000","width":2,"isEraser":false}}`)
	if _, err := decodeStroke(blank); !errors.Is(err, canvas.ErrInvalidGestureID) {
		t.Fatalf("expected ErrInvalidGestureID for blank gesture id, got %v", err)
	}
}

func TestDecodeStrokeRejectsIncompletePayloads(t *testing.T) {
	testCases := map[string]string{
		"missing id":      `{"start":{"x":0,"y":0},"end":{"x":1,"y":1},"style":{"color":"red","width":1}}`,
		"blank id":        `{"id":"  ","start":{"x":0,"y":0},"end":{"x":1,"y":1},"style":{"color":"red","width":1}}`,
		"missing start":   `{"id":"g1","end":{"x":1,"y":1},"style":{"color":"red","width":1}}`,
		"missing end y":   `{"id":"g1","start":{"x":0,"y":0},"end":{"x":1},"style":{"color":"red","width":1}}`,
		"missing style":   `{"id":"g1","start":{"x":0,"y":0},"end":{"x":1,"y":1}}`,
		"zero width":      `{"id":"g1","start":{"x":0,"y":0},"end":{"x":1,"y":1},"style":{"color":"red","width":0}}`,
		"missing color":   `{"id":"g1","start":{"x":0,"y":0},"end":{"x":1,"y":1},"style":{"width":2}}`,
		"wrong type":      `{"id":7,"start":{"x":0,"y":0},"end":{"x":1,"y":1},"style":{"color":"red","width":1}}`,
		"not an object":   `"g1"`,
		"missing payload": ``,
	}
	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeStroke(json.RawMessage(raw)); !errors.Is(err, errMalformedPayload) {
				t.Fatalf("expected errMalformedPayload, got %v", err)
			}
		})
	}
}

func TestDecodeRoomID(t *testing.T) {
	roomID, err := decodeRoomID(json.RawMessage(`"demo"`))
	if err != nil || roomID != "demo" {
		t.Fatalf("unexpected result %q, %v", roomID, err)
	}
	padded, err := decodeRoomID(json.RawMessage(`" demo "`))
	if err != nil || padded != " demo " {
		t.Fatalf("expected padded room id to be kept as sent, got %q, %v", padded, err)
	}
	if _, err := decodeRoomID(json.RawMessage(`"   "`)); !errors.Is(err, canvas.ErrInvalidRoomID) {
		t.Fatalf("expected ErrInvalidRoomID for blank room, got %v", err)
	}
	if _, err := decodeRoomID(json.RawMessage(`""`)); !errors.Is(err, canvas.ErrInvalidRoomID) {
		t.Fatalf("expected ErrInvalidRoomID, got %v", err)
	}
	if _, err := decodeRoomID(json.RawMessage(`{"room":"demo"}`)); !errors.Is(err, errMalformedPayload) {
		t.Fatalf("expected errMalformedPayload, got %v", err)
	}
}

func TestDecodePoint(t *testing.T) {
	point, err := decodePoint(json.RawMessage(`{"x":3.5,"y":-2}`))
	if err != nil || point != (canvas.Point{X: 3.5, Y: -2}) {
		t.Fatalf("unexpected result %+v, %v", point, err)
	}
	if _, err := decodePoint(json.RawMessage(`{"x":1}`)); !errors.Is(err, errMalformedPayload) {
		t.Fatalf("expected errMalformedPayload, got %v", err)
	}
}

func TestErrorCode(t *testing.T) {
	if code := errorCode(errUnknownEvent); code != "unknown_event" {
		t.Fatalf("unexpected code %q", code)
	}
	if code := errorCode(errMalformedFrame); code != "malformed_frame" {
		t.Fatalf("unexpected code %q", code)
	}
	if code := errorCode(errMalformedPayload); code != "malformed_payload" {
		t.Fatalf("unexpected code %q", code)
	}
}
