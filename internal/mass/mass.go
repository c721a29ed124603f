// Package mass holds the monoisotopic mass constants and charge/mass
// transforms used throughout mzQuant.
package mass

import "errors"

const (
	// Proton is the mass of a proton in Dalton
	Proton = float64(1.007276466879)
	// H2O is the monoisotopic mass of water
	H2O = float64(18.0105647)
	// IsotopeSpacing is the average mass difference between adjacent
	// isotope peaks of a peptide (C13-C12)
	IsotopeSpacing = float64(1.00335483810)
)

// Masses of amino acids (minus H2O)
var aaMass = map[rune]float64{
	'A': 71.0371138,
	'C': 103.0091848,
	'D': 115.0269430,
	'E': 129.0425931,
	'F': 147.0684139,
	'G': 57.0214637,
	'H': 137.0589119,
	'I': 113.0840640,
	'K': 128.0949630,
	'L': 113.0840640,
	'M': 131.0404849,
	'N': 114.0429274,
	'P': 97.0527638,
	'O': 237.1477269, // Pyrrolysine
	'Q': 128.0585775,
	'R': 156.1011110,
	'S': 87.0320284,
	'T': 101.0476785,
	'U': 144.9595902, // Selenocysteine
	'V': 99.0684139,
	'W': 186.0793129,
	'Y': 163.0633285,
}

var ErrInvalidAminoAcid = errors.New("invalid amino acid")

// Neutral converts an m/z value at a given charge to the neutral
// (uncharged) monoisotopic mass
func Neutral(mz float64, charge int) float64 {
	z := float64(charge)
	return mz*z - z*Proton
}

// MZ converts a neutral monoisotopic mass to the m/z value at a
// given charge
func MZ(mass float64, charge int) float64 {
	z := float64(charge)
	return (mass + z*Proton) / z
}

// PPMError returns the signed relative deviation of an observed mass
// from a theoretical mass, in parts-per-million
func PPMError(observed, theoretical float64) float64 {
	return (observed - theoretical) / theoretical * 1e6
}

// Peptide computes the lowest isotope mass of an unmodified peptide
func Peptide(pepSeq string) (float64, error) {
	m := H2O
	for _, aa := range pepSeq {
		aam, ok := aaMass[aa]
		if !ok {
			return 0.0, ErrInvalidAminoAcid
		}
		m += aam
	}
	return m, nil
}
