package mass

import (
	"math"
	"testing"
)

func TestNeutralMZRoundTrip(t *testing.T) {
	for _, charge := range []int{1, 2, 3, 5} {
		mz := MZ(1500.75, charge)
		m := Neutral(mz, charge)
		if math.Abs(m-1500.75) > 1e-9 {
			t.Errorf("Neutral(MZ(1500.75, %d)) = %f, want 1500.75", charge, m)
		}
	}
	// A singly charged ion's m/z is the mass plus one proton
	mz := MZ(1000.0, 1)
	if math.Abs(mz-1001.007276466879) > 1e-9 {
		t.Errorf("MZ(1000, 1) = %f, want 1001.007276466879", mz)
	}
}

func TestPPMError(t *testing.T) {
	ppm := PPMError(1000.001, 1000.0)
	if math.Abs(ppm-1.0) > 1e-6 {
		t.Errorf("PPMError(1000.001, 1000) = %f, want 1.0", ppm)
	}
	ppm = PPMError(999.999, 1000.0)
	if math.Abs(ppm+1.0) > 1e-6 {
		t.Errorf("PPMError(999.999, 1000) = %f, want -1.0", ppm)
	}
}

func TestPeptide(t *testing.T) {
	// Single glycine: residue mass plus water
	m, err := Peptide("G")
	if err != nil {
		t.Errorf("Peptide: error return %v", err)
	}
	if math.Abs(m-(57.0214637+H2O)) > 1e-6 {
		t.Errorf("Peptide(G) = %f", m)
	}

	m, err = Peptide("PEPTIDE")
	if err != nil {
		t.Errorf("Peptide: error return %v", err)
	}
	if math.Abs(m-799.359964) > 1e-3 {
		t.Errorf("Peptide(PEPTIDE) = %f, want 799.359964", m)
	}

	_, err = Peptide("PEPTIDEX")
	if err != ErrInvalidAminoAcid {
		t.Errorf("Peptide: error return %v, should be ErrInvalidAminoAcid", err)
	}
}
