package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type LayoutID string

type LayoutKind string

const (
	LayoutKindBestFit          LayoutKind = "BEST_FIT"
	LayoutKindSingle           LayoutKind = "SINGLE"
	LayoutKindPair             LayoutKind = "PAIR"
	LayoutKindPictureInPicture LayoutKind = "PICTURE_IN_PICTURE"
)

// LayoutIntent is a closed set of desired compositions. Every variant is
// dispatched through LayoutVisitor, so a new variant does not compile until
// each visitor handles it.
type LayoutIntent interface {
	Kind() LayoutKind
	StreamIDs() []StreamID
	Accept(v LayoutVisitor)
}

type LayoutVisitor interface {
	VisitBestFit(l BestFitLayout)
	VisitSingle(l SingleLayout)
	VisitPair(l PairLayout)
	VisitPictureInPicture(l PictureInPictureLayout)
}

// BestFitLayout leaves placement to the provider's built-in algorithm.
type BestFitLayout struct{}

type SingleLayout struct {
	Focus StreamID
}

type PairLayout struct {
	Left  StreamID
	Right StreamID
}

type PictureInPictureLayout struct {
	Focus  StreamID
	Corner StreamID
}

func (BestFitLayout) Kind() LayoutKind          { return LayoutKindBestFit }
func (SingleLayout) Kind() LayoutKind           { return LayoutKindSingle }
func (PairLayout) Kind() LayoutKind             { return LayoutKindPair }
func (PictureInPictureLayout) Kind() LayoutKind { return LayoutKindPictureInPicture }

func (BestFitLayout) StreamIDs() []StreamID            { return nil }
func (l SingleLayout) StreamIDs() []StreamID           { return []StreamID{l.Focus} }
func (l PairLayout) StreamIDs() []StreamID             { return []StreamID{l.Left, l.Right} }
func (l PictureInPictureLayout) StreamIDs() []StreamID { return []StreamID{l.Focus, l.Corner} }

func (l BestFitLayout) Accept(v LayoutVisitor)          { v.VisitBestFit(l) }
func (l SingleLayout) Accept(v LayoutVisitor)           { v.VisitSingle(l) }
func (l PairLayout) Accept(v LayoutVisitor)             { v.VisitPair(l) }
func (l PictureInPictureLayout) Accept(v LayoutVisitor) { v.VisitPictureInPicture(l) }

// LayoutIntentRecord is a persisted intent. Only the most recent record of an
// event session is authoritative.
type LayoutIntentRecord struct {
	ID             LayoutID
	EventSessionID EventSessionID
	Intent         LayoutIntent
	CreatedAt      time.Time
}

// layoutData is the wire form shared with clients and the store.
type layoutData struct {
	Type           LayoutKind `json:"type"`
	FocusStreamID  StreamID   `json:"focusStreamId,omitempty"`
	CornerStreamID StreamID   `json:"cornerStreamId,omitempty"`
	LeftStreamID   StreamID   `json:"leftStreamId,omitempty"`
	RightStreamID  StreamID   `json:"rightStreamId,omitempty"`
}

// ParseLayoutData decodes and validates the wire form of a layout intent.
func ParseLayoutData(raw []byte) (LayoutIntent, error) {
	var data layoutData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayoutData, err)
	}

	switch data.Type {
	case LayoutKindBestFit:
		return BestFitLayout{}, nil
	case LayoutKindSingle:
		if data.FocusStreamID == "" {
			return nil, fmt.Errorf("%w: focusStreamId is required", ErrInvalidLayoutData)
		}
		return SingleLayout{Focus: data.FocusStreamID}, nil
	case LayoutKindPair:
		if data.LeftStreamID == "" || data.RightStreamID == "" {
			return nil, fmt.Errorf("%w: leftStreamId and rightStreamId are required", ErrInvalidLayoutData)
		}
		if data.LeftStreamID == data.RightStreamID {
			return nil, fmt.Errorf("%w: leftStreamId and rightStreamId must differ", ErrInvalidLayoutData)
		}
		return PairLayout{Left: data.LeftStreamID, Right: data.RightStreamID}, nil
	case LayoutKindPictureInPicture:
		if data.FocusStreamID == "" || data.CornerStreamID == "" {
			return nil, fmt.Errorf("%w: focusStreamId and cornerStreamId are required", ErrInvalidLayoutData)
		}
		if data.FocusStreamID == data.CornerStreamID {
			return nil, fmt.Errorf("%w: focusStreamId and cornerStreamId must differ", ErrInvalidLayoutData)
		}
		return PictureInPictureLayout{Focus: data.FocusStreamID, Corner: data.CornerStreamID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown layout type %q", ErrInvalidLayoutData, data.Type)
	}
}

type wireEncoder struct {
	data layoutData
}

func (w *wireEncoder) VisitBestFit(BestFitLayout) {
	w.data = layoutData{Type: LayoutKindBestFit}
}

func (w *wireEncoder) VisitSingle(l SingleLayout) {
	w.data = layoutData{Type: LayoutKindSingle, FocusStreamID: l.Focus}
}

func (w *wireEncoder) VisitPair(l PairLayout) {
	w.data = layoutData{Type: LayoutKindPair, LeftStreamID: l.Left, RightStreamID: l.Right}
}

func (w *wireEncoder) VisitPictureInPicture(l PictureInPictureLayout) {
	w.data = layoutData{Type: LayoutKindPictureInPicture, FocusStreamID: l.Focus, CornerStreamID: l.Corner}
}

// MarshalLayoutData encodes an intent in its wire form.
func MarshalLayoutData(intent LayoutIntent) ([]byte, error) {
	if intent == nil {
		return nil, fmt.Errorf("%w: nil layout", ErrInvalidLayoutData)
	}
	enc := &wireEncoder{}
	intent.Accept(enc)
	return json.Marshal(enc.data)
}

type AlgorithmType string

const (
	AlgorithmBestFit AlgorithmType = "bestFit"
	AlgorithmCustom  AlgorithmType = "custom"
)

const ScreenShareVerticalPresentation = "verticalPresentation"

// Algorithm is the broadcast-level layout: a built-in algorithm or a stylesheet.
type Algorithm struct {
	Type            AlgorithmType
	Stylesheet      string
	ScreenShareType string
}

func BestFitAlgorithm() Algorithm {
	return Algorithm{Type: AlgorithmBestFit, ScreenShareType: ScreenShareVerticalPresentation}
}

func CustomAlgorithm(stylesheet string) Algorithm {
	return Algorithm{Type: AlgorithmCustom, Stylesheet: stylesheet}
}

// LayoutDescriptor is the provider-facing form of an intent.
type LayoutDescriptor struct {
	StreamClasses map[StreamID][]string
	Algorithm     Algorithm
}

// DefaultLayoutDescriptor is used when a session has no usable intent.
func DefaultLayoutDescriptor() LayoutDescriptor {
	return LayoutDescriptor{
		StreamClasses: map[StreamID][]string{},
		Algorithm:     BestFitAlgorithm(),
	}
}
