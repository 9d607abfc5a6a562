package model

import (
	"strconv"
	"strings"
)

// ColorBand classifies expected wait severity for the driver UI.
type ColorBand string

const (
	BandGreen ColorBand = "green"
	BandAmber ColorBand = "amber"
	BandRed   ColorBand = "red"
)

// Default color band thresholds in minutes: green<=10, amber<=25, else red.
const (
	DefaultBandLowMin  = 10
	DefaultBandHighMin = 25
)

// ParseBands parses a "low,high" threshold string. Malformed input falls
// back to the defaults instead of failing, so a bad deployment config can
// never take planning down.
func ParseBands(s string) (low, high float64) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return DefaultBandLowMin, DefaultBandHighMin
	}
	l, errL := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errL != nil || errH != nil || l > h {
		return DefaultBandLowMin, DefaultBandHighMin
	}
	return l, h
}

// BandFromMinutes maps an expected charge-start delay to a color band using
// the "low,high" thresholds in bands.
func BandFromMinutes(expectedStartMin float64, bands string) ColorBand {
	low, high := ParseBands(bands)
	switch {
	case expectedStartMin <= low:
		return BandGreen
	case expectedStartMin <= high:
		return BandAmber
	default:
		return BandRed
	}
}
