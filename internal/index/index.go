// Package index builds a per-run lookup structure over centroided MS1
// peaks, so that envelope detection can ask "is there a peak near this
// m/z in this scan" in (near) constant time.
package index

import (
	"math"
	"sort"

	"github.com/524D/mzquant/internal/mzml"
)

// Peak is one indexed mass spectral peak. Peaks are owned by the index;
// all other structures reference them by pointer.
type Peak struct {
	Mz            float64
	Intensity     float64
	ScanNumber    int // one-based scan number in the source file
	RetentionTime float64
}

// ScanInfo identifies one MS1 scan of the run
type ScanInfo struct {
	ScanNumber    int
	RetentionTime float64
}

// Index holds the MS1 peaks of one run, binned by integer m/z.
// Within each bin, peaks are ordered by scan number so that per-scan
// lookups are a binary search.
type Index struct {
	bins  map[int][]*Peak
	scans []ScanInfo
}

// Build indexes all centroided MS1 spectra of an mzML file.
// Peaks with zero intensity are not indexed.
func Build(f *mzml.MzML) (*Index, error) {
	idx := &Index{bins: make(map[int][]*Peak)}

	numSpecs := f.NumSpecs()
	for i := 0; i < numSpecs; i++ {
		msLevel, err := f.MSLevel(i)
		if err != nil {
			return nil, err
		}
		if msLevel != 1 {
			continue
		}
		rt, err := f.RetentionTime(i)
		if err != nil {
			return nil, err
		}
		peaks, err := f.ReadScan(i)
		if err != nil {
			return nil, err
		}
		scanNumber := i + 1
		idx.scans = append(idx.scans, ScanInfo{ScanNumber: scanNumber, RetentionTime: rt})
		for _, p := range peaks {
			if p.Intens <= 0 {
				continue
			}
			idx.add(&Peak{
				Mz:            p.Mz,
				Intensity:     p.Intens,
				ScanNumber:    scanNumber,
				RetentionTime: rt,
			})
		}
	}
	idx.sortBins()
	return idx, nil
}

// New builds an index directly from peaks and scan info. Intended for
// collaborators that do their own spectral parsing, and for tests.
func New(peaks []*Peak, scans []ScanInfo) *Index {
	idx := &Index{
		bins:  make(map[int][]*Peak),
		scans: append([]ScanInfo(nil), scans...),
	}
	for _, p := range peaks {
		idx.add(p)
	}
	sort.Slice(idx.scans, func(i, j int) bool {
		return idx.scans[i].ScanNumber < idx.scans[j].ScanNumber
	})
	idx.sortBins()
	return idx
}

func (idx *Index) add(p *Peak) {
	b := int(math.Floor(p.Mz))
	idx.bins[b] = append(idx.bins[b], p)
}

func (idx *Index) sortBins() {
	for _, bin := range idx.bins {
		sort.Slice(bin, func(i, j int) bool {
			if bin[i].ScanNumber != bin[j].ScanNumber {
				return bin[i].ScanNumber < bin[j].ScanNumber
			}
			return bin[i].Mz < bin[j].Mz
		})
	}
}

// Scans returns the MS1 scans of the run in chronological order
func (idx *Index) Scans() []ScanInfo {
	return idx.scans
}

// RTRange returns the retention time span of the run
func (idx *Index) RTRange() (float64, float64) {
	if len(idx.scans) == 0 {
		return 0, 0
	}
	return idx.scans[0].RetentionTime, idx.scans[len(idx.scans)-1].RetentionTime
}

// ScanPosNear returns the position (into Scans()) of the MS1 scan whose
// retention time is closest to rt without exceeding it
func (idx *Index) ScanPosNear(rt float64) int {
	j := sort.Search(len(idx.scans), func(i int) bool { return idx.scans[i].RetentionTime > rt })
	if j > 0 {
		j--
	}
	return j
}

// PeakAt returns the most intense peak within a ppm tolerance around mz
// in the given scan, or nil if there is none
func (idx *Index) PeakAt(mz float64, ppmTol float64, scanNumber int) *Peak {
	tol := ppmTol * mz / 1e6
	lo := mz - tol
	hi := mz + tol

	var best *Peak
	for b := int(math.Floor(lo)); b <= int(math.Floor(hi)); b++ {
		bin, ok := idx.bins[b]
		if !ok {
			continue
		}
		i1 := sort.Search(len(bin), func(i int) bool { return bin[i].ScanNumber >= scanNumber })
		for i := i1; i < len(bin) && bin[i].ScanNumber == scanNumber; i++ {
			p := bin[i]
			if p.Mz < lo || p.Mz > hi {
				continue
			}
			if best == nil || p.Intensity > best.Intensity {
				best = p
			}
		}
	}
	return best
}
