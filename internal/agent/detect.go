package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotAnImage is returned when detection input is not image data.
var ErrNotAnImage = errors.New("input is not an image")

// DetectedTool is one tool recognized in a photo.
type DetectedTool struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// StaticDetector returns a fixed catalogue for any image. It stands in for a
// real vision model behind the same Detect signature.
type StaticDetector struct {
	catalogue []DetectedTool
}

// DefaultCatalogue is what StaticDetector reports when built without one.
var DefaultCatalogue = []DetectedTool{
	{Name: "Hammer", Confidence: 0.92},
	{Name: "Screwdriver", Confidence: 0.87},
	{Name: "Tape measure", Confidence: 0.81},
}

// NewStaticDetector creates a detector reporting catalogue, or
// DefaultCatalogue when catalogue is empty.
func NewStaticDetector(catalogue []DetectedTool) *StaticDetector {
	if len(catalogue) == 0 {
		catalogue = DefaultCatalogue
	}
	return &StaticDetector{catalogue: append([]DetectedTool(nil), catalogue...)}
}

// Detect checks that image holds image data and returns the catalogue.
func (d *StaticDetector) Detect(ctx context.Context, image []byte) ([]DetectedTool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(image) == 0 || !strings.HasPrefix(mimetype.Detect(image).String(), "image/") {
		return nil, ErrNotAnImage
	}
	return append([]DetectedTool(nil), d.catalogue...), nil
}
