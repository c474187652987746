package services

import (
	"relaycast/internal/core/domain"
)

const (
	ClassFocus  = "focus"
	ClassLeft   = "left"
	ClassRight  = "right"
	ClassCorner = "corner"
)

// Stylesheets for custom broadcast layouts. Selectors match the classes
// assigned to each stream.
const (
	singleStylesheet = "stream.focus {display: block; position: absolute; width: 100%; height: 100%; left: 0;}"

	pairStylesheet = "stream.left {display: block; position: absolute; width: 50%; height: 100%; left: 0;} " +
		"stream.right {position: absolute; width: 50%; height: 100%; right: 0;}"

	pictureInPictureStylesheet = "stream.focus {display: block; position: absolute; width: 100%; height: 100%; left: 0; z-index: 100;} " +
		"stream.corner {display: block; position: absolute; width: 15%; height: 15%; right: 2%; bottom: 3%; z-index: 200;}"
)

// LayoutTranslator maps layout intents to provider descriptors. It does no I/O.
type LayoutTranslator struct{}

func NewLayoutTranslator() *LayoutTranslator {
	return &LayoutTranslator{}
}

func (t *LayoutTranslator) Translate(intent domain.LayoutIntent) domain.LayoutDescriptor {
	if intent == nil {
		return domain.DefaultLayoutDescriptor()
	}
	v := &descriptorBuilder{}
	intent.Accept(v)
	return v.descriptor
}

type descriptorBuilder struct {
	descriptor domain.LayoutDescriptor
}

func (b *descriptorBuilder) VisitBestFit(domain.BestFitLayout) {
	b.descriptor = domain.DefaultLayoutDescriptor()
}

func (b *descriptorBuilder) VisitSingle(l domain.SingleLayout) {
	b.descriptor = domain.LayoutDescriptor{
		StreamClasses: map[domain.StreamID][]string{
			l.Focus: {ClassFocus},
		},
		Algorithm: domain.CustomAlgorithm(singleStylesheet),
	}
}

func (b *descriptorBuilder) VisitPair(l domain.PairLayout) {
	b.descriptor = domain.LayoutDescriptor{
		StreamClasses: map[domain.StreamID][]string{
			l.Left:  {ClassLeft},
			l.Right: {ClassRight},
		},
		Algorithm: domain.CustomAlgorithm(pairStylesheet),
	}
}

func (b *descriptorBuilder) VisitPictureInPicture(l domain.PictureInPictureLayout) {
	b.descriptor = domain.LayoutDescriptor{
		StreamClasses: map[domain.StreamID][]string{
			l.Focus:  {ClassFocus},
			l.Corner: {ClassCorner},
		},
		Algorithm: domain.CustomAlgorithm(pictureInPictureStylesheet),
	}
}
