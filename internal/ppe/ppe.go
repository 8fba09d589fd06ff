// Package ppe holds the class taxonomy of the safety-gear model and the
// presentation rules derived from it.
package ppe

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
)

const (
	// ViolationMarker prefixes every class that reports missing equipment.
	ViolationMarker = "NO-"
	// GloveViolation is drawn with a shrunk box around the hands.
	GloveViolation = "NO-Gloves"
	// Unknown labels class ids outside the taxonomy.
	Unknown = "Unknown"
)

var (
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 0}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 0}
)

// Taxonomy maps model class ids to label names.
type Taxonomy []string

// DefaultClasses is the label order of the glove-aware PPE model.
var DefaultClasses = Taxonomy{
	"Hardhat", "Mask", "NO-Hardhat", "NO-Mask", "NO-Safety Vest", "NO-Gloves",
	"Person", "Safety Cone", "Safety Vest", "machinery", "vehicle",
}

// LegacyClasses is the label order of the earlier model without glove classes.
var LegacyClasses = Taxonomy{
	"Hardhat", "Mask", "NO-Hardhat", "NO-Mask", "NO-Safety Vest",
	"Person", "Safety Cone", "Safety Vest", "machinery", "vehicle",
}

// NewTaxonomy returns the given names, or DefaultClasses when none are set.
func NewTaxonomy(names []string) Taxonomy {
	if len(names) == 0 {
		return DefaultClasses
	}
	return Taxonomy(names)
}

// Name returns the label for a class id.
func (t Taxonomy) Name(classID int) string {
	if classID < 0 || classID >= len(t) {
		return Unknown
	}
	return t[classID]
}

// IsViolation reports whether a label describes missing safety equipment.
func IsViolation(label string) bool {
	return strings.Contains(label, ViolationMarker)
}

// ColorFor returns red for violations and green for compliant classes.
func ColorFor(label string) color.RGBA {
	if IsViolation(label) {
		return Red
	}
	return Green
}

// RoundConfidence rounds a score up to two decimals.
// Scores come from float32 tensors, so values within 1e-6 of a step are
// snapped to it before rounding up (0.83 must stay 0.83).
func RoundConfidence(conf float64) float64 {
	scaled := math.Round(conf*100*1e6) / 1e6
	return math.Ceil(scaled) / 100
}

// Label formats the text tag drawn next to a box, e.g. "NO-Hardhat 0.83".
func Label(name string, conf float64) string {
	return fmt.Sprintf("%s %.2f", name, RoundConfidence(conf))
}

// GloveBox narrows a person-sized box to the hand area: it starts at 60% of
// the height, covers 25% of it and keeps the central 30% of the width.
func GloveBox(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	y1 := r.Min.Y + int(float64(h)*0.6)
	gh := int(float64(h) * 0.25)
	cx := r.Min.X + int(float64(w)*0.5)
	gw := int(float64(w) * 0.3)
	x1 := cx - gw/2
	return image.Rectangle{
		Min: image.Pt(x1, y1),
		Max: image.Pt(x1+gw, y1+gh),
	}
}
