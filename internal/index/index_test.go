package index

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// threeScanIndex builds an index of 3 MS1 scans with a small peak set
// around m/z 500 and one peak straddling an integer m/z boundary
func threeScanIndex() *Index {
	scans := []ScanInfo{
		{ScanNumber: 1, RetentionTime: 10.0},
		{ScanNumber: 2, RetentionTime: 20.0},
		{ScanNumber: 3, RetentionTime: 30.0},
	}
	peaks := []*Peak{
		{Mz: 500.0000, Intensity: 100, ScanNumber: 1, RetentionTime: 10.0},
		{Mz: 500.0010, Intensity: 300, ScanNumber: 1, RetentionTime: 10.0},
		{Mz: 500.0000, Intensity: 200, ScanNumber: 2, RetentionTime: 20.0},
		{Mz: 600.9999, Intensity: 50, ScanNumber: 2, RetentionTime: 20.0},
		{Mz: 601.0001, Intensity: 75, ScanNumber: 2, RetentionTime: 20.0},
	}
	return New(peaks, scans)
}

func TestPeakAt(t *testing.T) {
	idx := threeScanIndex()

	// Both scan-1 peaks near 500 fall in a 10 ppm window; the most
	// intense one must be returned
	p := idx.PeakAt(500.0005, 10.0, 1)
	if p == nil {
		t.Fatalf("PeakAt: no peak found")
	}
	if p.Intensity != 300 {
		t.Errorf("PeakAt: intensity %f, should be 300 (most intense in window)", p.Intensity)
	}

	// Same m/z in another scan gives another peak
	p = idx.PeakAt(500.0000, 5.0, 2)
	if p == nil || p.Intensity != 200 {
		t.Errorf("PeakAt: expected the scan 2 peak, got %+v", p)
	}

	// The window may cross an integer m/z bin boundary
	p = idx.PeakAt(601.0000, 5.0, 2)
	if p == nil {
		t.Fatalf("PeakAt: no peak found across bin boundary")
	}
	if p.Intensity != 75 {
		t.Errorf("PeakAt: intensity %f, should be 75", p.Intensity)
	}

	// No peak outside the tolerance
	p = idx.PeakAt(500.5000, 5.0, 1)
	if p != nil {
		t.Errorf("PeakAt: found %+v, should be nil", p)
	}
	// No peak in a scan without signal at this m/z
	p = idx.PeakAt(601.0000, 5.0, 3)
	if p != nil {
		t.Errorf("PeakAt: found %+v in empty scan, should be nil", p)
	}
}

func TestScanPosNear(t *testing.T) {
	idx := threeScanIndex()
	cases := []struct {
		rt  float64
		pos int
	}{
		{5.0, 0},  // before the run
		{10.0, 0}, // exact
		{19.9, 0}, // closest not exceeding
		{20.0, 1},
		{25.0, 1},
		{99.0, 2}, // after the run
	}
	for _, c := range cases {
		if pos := idx.ScanPosNear(c.rt); pos != c.pos {
			t.Errorf("ScanPosNear(%f): %d, should be %d", c.rt, pos, c.pos)
		}
	}
}

func TestRTRange(t *testing.T) {
	idx := threeScanIndex()
	lo, hi := idx.RTRange()
	if lo != 10.0 || hi != 30.0 {
		t.Errorf("RTRange: %f:%f, should be 10:30", lo, hi)
	}
	wantScans := []ScanInfo{
		{ScanNumber: 1, RetentionTime: 10.0},
		{ScanNumber: 2, RetentionTime: 20.0},
		{ScanNumber: 3, RetentionTime: 30.0},
	}
	if diff := cmp.Diff(wantScans, idx.Scans()); diff != "" {
		t.Errorf("Scans mismatch (-want +got):\n%s", diff)
	}

	empty := New(nil, nil)
	lo, hi = empty.RTRange()
	if lo != 0 || hi != 0 {
		t.Errorf("RTRange of empty index: %f:%f, should be 0:0", lo, hi)
	}
}

func TestPeakAtToleranceIsPPM(t *testing.T) {
	idx := threeScanIndex()
	// 1 ppm at m/z 500 is 0.0005; the peak at 500.0010 is 2 ppm away
	// from 500.0000 and must not match at 1 ppm
	p := idx.PeakAt(500.0000, 1.0, 1)
	if p == nil {
		t.Fatalf("PeakAt: no peak found")
	}
	if math.Abs(p.Mz-500.0) > 1e-9 {
		t.Errorf("PeakAt: mz %f, should be exactly 500", p.Mz)
	}
}
