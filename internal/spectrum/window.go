// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the window applied before every FFT.
type WindowFunc int

// Enum for available window functions.
const (
	BlackmanHarris WindowFunc = iota
	Blackman
	BlackmanNuttall
	BartlettHann
	Hann
	Hamming
	Nuttall
	Rectangular
	Triangular
)

var windowNames = map[WindowFunc]string{
	BlackmanHarris:  "BlackmanHarris",
	Blackman:        "Blackman",
	BlackmanNuttall: "BlackmanNuttall",
	BartlettHann:    "BartlettHann",
	Hann:            "Hann",
	Hamming:         "Hamming",
	Nuttall:         "Nuttall",
	Rectangular:     "Rectangular",
	Triangular:      "Triangular",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc.
// Unknown names return BlackmanHarris and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "blackmanharris", "blackman-harris":
		return BlackmanHarris, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "bartletthann":
		return BartlettHann, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "nuttall":
		return Nuttall, nil
	case "rectangular", "none":
		return Rectangular, nil
	case "triangular", "triangle":
		return Triangular, nil
	default:
		return BlackmanHarris, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// fillWindow writes the coefficients of w into coeffs. The gonum window functions
// multiply in place, so the slice is reset to ones first.
func fillWindow(coeffs []float64, w WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch w {
	case BlackmanHarris:
		window.BlackmanHarris(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Rectangular:
		window.Rectangular(coeffs)
	case Triangular:
		window.Triangular(coeffs)
	default:
		logger.Warnf("unknown window function %d, defaulting to BlackmanHarris", int(w))
		window.BlackmanHarris(coeffs)
	}
}
