package mzident

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Read reads mzIdentML content from an io.Reader
func Read(reader io.Reader) (MzIdentML, error) {
	var mzIdentML MzIdentML
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	err := d.Decode(&mzIdentML.content)
	if err != nil {
		return mzIdentML, err
	}
	mzIdentML.buildLookups()
	mzIdentML.buildIdentList()
	return mzIdentML, nil
}

func (m *MzIdentML) buildLookups() {
	m.pepID2Idx = make(map[string]int, len(m.content.Peptide))
	for i, p := range m.content.Peptide {
		m.pepID2Idx[p.ID] = i
	}
	m.dbSeq2Prot = make(map[string]Protein, len(m.content.DBSequence))
	for _, s := range m.content.DBSequence {
		prot := Protein{Accession: s.Accession}
		for _, cv := range s.CvPar {
			if cv.Accession == "MS:1001469" { // taxonomy: scientific name
				prot.Organism = cv.Value
			}
		}
		m.dbSeq2Prot[s.ID] = prot
	}
	m.pepEv2DBRef = make(map[string]string, len(m.content.PeptideEvidence))
	for _, ev := range m.content.PeptideEvidence {
		m.pepEv2DBRef[ev.ID] = ev.DBSequenceRef
	}
}

func (m *MzIdentML) buildIdentList() {
	for i := range m.content.SpectrumIdentificationResult {
		for j := range m.content.SpectrumIdentificationResult[i].SpectrumIdentificationItem {
			var iRef identRef
			iRef.specIDIdx = i
			iRef.specResultIdx = j
			m.identList = append(m.identList, iRef)
		}
	}
}

// NumIdents returns the total number of identifications in the mzIdentML file.
// Note that for some spectra, multiple identifications may be present.
// The identifications can be accessed using the Ident() method, which takes
// an index as argument. The index runs from 0 to NumIdents()-1
func (m *MzIdentML) NumIdents() int {
	return len(m.identList)
}

// modifiedSequence composes a flat representation of a peptide with its
// modifications, e.g. PEPT[+79.9663]IDE. Location 0 denotes an n-terminal
// modification, len(seq)+1 a c-terminal one.
func modifiedSequence(seq string, mods []modification) string {
	if len(mods) == 0 {
		return seq
	}
	var sb strings.Builder
	for pos := 0; pos <= len(seq); pos++ {
		for _, mod := range mods {
			if mod.Location == pos {
				fmt.Fprintf(&sb, "[%+.4f]", mod.MonoisotopicMassDelta)
			}
		}
		if pos < len(seq) {
			sb.WriteByte(seq[pos])
		}
	}
	return sb.String()
}

// Ident returns a spectrum identification from the mzIdentML file.
// Parameter i is the index of the identification to return. The index runs
// from 0 to NumIdents()-1
func (m *MzIdentML) Ident(i int) (Identification, error) {
	var ident Identification

	if i < 0 || i >= len(m.identList) {
		return ident, ErrInvalidIdentIndex
	}
	specIDIdx := m.identList[i].specIDIdx
	specResultIdx := m.identList[i].specResultIdx

	result := &m.content.SpectrumIdentificationResult[specIDIdx]
	item := &result.SpectrumIdentificationItem[specResultIdx]

	pepIdx := m.pepID2Idx[item.PeptideRef]
	pep := &m.content.Peptide[pepIdx]
	ident.PepSeq = pep.PeptideSequence
	ident.PepID = pep.ID
	ident.Charge = item.ChargeState
	ident.ModMass = float64(0)
	for _, mod := range pep.Modification {
		ident.ModMass += mod.MonoisotopicMassDelta
	}
	ident.ModifiedSequence = modifiedSequence(pep.PeptideSequence, pep.Modification)
	ident.SpecID = result.SpectrumID

	// Resolve the proteins via the peptide evidences
	seen := make(map[string]bool)
	for _, evRef := range item.PeptideEvidenceRef {
		prot, ok := m.dbSeq2Prot[m.pepEv2DBRef[evRef.PeptideEvidenceRef]]
		if ok && prot.Accession != "" && !seen[prot.Accession] {
			seen[prot.Accession] = true
			ident.Proteins = append(ident.Proteins, prot)
		}
	}

	ident.RetentionTime = float64(-1)
	prio := math.MaxInt32
	for _, cv := range result.CvPar {
		// There are multiple CV terms that can be used to report the
		// retention time. In order of decreasing preference we use:
		// 1. MS:1000016 - scan start time
		// 2. MS:1000894 - retention time
		// 3. MS:1000826 - elution time
		// 4. MS:1001114 - retention time (deprecated)
		useTime := false
		switch cv.Accession {
		case "MS:1000016":
			if prio > 1 {
				prio = 1
				useTime = true
			}
		case "MS:1000894":
			if prio > 2 {
				prio = 2
				useTime = true
			}
		case "MS:1000826":
			if prio > 3 {
				prio = 3
				useTime = true
			}
		case "MS:1001114":
			if prio > 4 {
				prio = 4
				useTime = true
			}
		}
		// If a (higher priority) term was found, process/store the retention time
		if useTime {
			retentionTime, err := strconv.ParseFloat(cv.Value, 64)
			if err != nil {
				return ident, err
			}
			// Check if the retention time is in minutes, otherwise assume it's seconds
			if cv.UnitAccession == "UO:0000031" || cv.UnitAccession == "MS:1000038" {
				retentionTime *= 60
			}
			ident.RetentionTime = retentionTime
		}
	}
	// Collect CV terms/values for the identification, the scores are in there
	ident.Cv = append(ident.Cv, item.CvPar...)

	return ident, nil
}
