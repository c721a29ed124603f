package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"
)

// encodePeaks builds the base64 payload of a binaryDataArray from a
// list of values, mirroring the mzML binary data encoding
func encodePeaks(vals []float64, bits64 bool, compress bool) string {
	var raw bytes.Buffer
	for _, v := range vals {
		if bits64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
			raw.Write(b[:])
		} else {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(v)))
			raw.Write(b[:])
		}
	}
	data := raw.Bytes()
	if compress {
		var compressed bytes.Buffer
		w := zlib.NewWriter(&compressed)
		w.Write(data)
		w.Close()
		data = compressed.Bytes()
	}
	return base64.StdEncoding.EncodeToString(data)
}

// testMzML composes a two-spectrum mzML document: an MS1 centroid
// spectrum with the given peaks (m/z 64-bit zlib-compressed, intensity
// 32-bit plain) and an MS2 spectrum without peaks
func testMzML(mzs, intensities []float64) string {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
  <run id="testRun">
    <spectrumList count="2">
      <spectrum index="0" id="scan=1" defaultArrayLength="%d">
        <cvParam accession="MS:1000511" name="ms level" value="1"/>
        <cvParam accession="MS:1000127" name="centroid spectrum" value=""/>
        <scanList count="1">
          <scan>
            <cvParam accession="MS:1000016" name="scan start time" value="1.5" unitAccession="UO:0000031" unitName="minute"/>
          </scan>
        </scanList>
        <binaryDataArrayList count="2">
          <binaryDataArray>
            <cvParam accession="MS:1000523" name="64-bit float" value=""/>
            <cvParam accession="MS:1000574" name="zlib compression" value=""/>
            <cvParam accession="MS:1000514" name="m/z array" value=""/>
            <binary>%s</binary>
          </binaryDataArray>
          <binaryDataArray>
            <cvParam accession="MS:1000521" name="32-bit float" value=""/>
            <cvParam accession="MS:1000576" name="no compression" value=""/>
            <cvParam accession="MS:1000515" name="intensity array" value=""/>
            <binary>%s</binary>
          </binaryDataArray>
        </binaryDataArrayList>
      </spectrum>
      <spectrum index="1" id="scan=2" defaultArrayLength="0">
        <cvParam accession="MS:1000511" name="ms level" value="2"/>
        <scanList count="1">
          <scan>
            <cvParam accession="MS:1000016" name="scan start time" value="95.0" unitAccession="UO:0000010" unitName="second"/>
          </scan>
        </scanList>
        <binaryDataArrayList count="0">
        </binaryDataArrayList>
      </spectrum>
    </spectrumList>
  </run>
</mzML>
`
	return fmt.Sprintf(doc, len(mzs),
		encodePeaks(mzs, true, true),
		encodePeaks(intensities, false, false))
}

func TestReadSyntheticMzML(t *testing.T) {
	mzs := []float64{500.1, 500.6, 501.2}
	intensities := []float64{100.0, 250.0, 50.0}
	f, err := Read(strings.NewReader(testMzML(mzs, intensities)))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	if n := f.NumSpecs(); n != 2 {
		t.Fatalf("NumSpecs: %d, should be 2", n)
	}

	p, err := f.ReadScan(0)
	if err != nil {
		t.Fatalf("ReadScan: error return %v", err)
	}
	if len(p) != 3 {
		t.Fatalf("ReadScan: %d peaks, should be 3", len(p))
	}
	for i := range mzs {
		if math.Abs(p[i].Mz-mzs[i]) > 1e-9 {
			t.Errorf("ReadScan: peak %d mz %v, should be %v", i, p[i].Mz, mzs[i])
		}
		if math.Abs(p[i].Intens-intensities[i]) > 1e-3 {
			t.Errorf("ReadScan: peak %d intensity %v, should be %v", i, p[i].Intens, intensities[i])
		}
	}
	_, err = f.ReadScan(2)
	if err != ErrInvalidScanIndex {
		t.Errorf("ReadScan: error return %v, should be ErrInvalidScanIndex", err)
	}

	// Minutes must be converted to seconds
	rt, err := f.RetentionTime(0)
	if err != nil {
		t.Errorf("RetentionTime: error return %v", err)
	}
	if math.Abs(rt-90.0) > 1e-9 {
		t.Errorf("RetentionTime: %f, should be 90 (seconds)", rt)
	}
	rt, err = f.RetentionTime(1)
	if err != nil {
		t.Errorf("RetentionTime: error return %v", err)
	}
	if math.Abs(rt-95.0) > 1e-9 {
		t.Errorf("RetentionTime: %f, should be 95", rt)
	}

	msLevel, err := f.MSLevel(0)
	if err != nil {
		t.Errorf("MSLevel: error return %v", err)
	}
	if msLevel != 1 {
		t.Errorf("MSLevel: %d, should be 1", msLevel)
	}
	msLevel, err = f.MSLevel(1)
	if err != nil {
		t.Errorf("MSLevel: error return %v", err)
	}
	if msLevel != 2 {
		t.Errorf("MSLevel: %d, should be 2", msLevel)
	}

	centroid, err := f.Centroid(0)
	if err != nil {
		t.Errorf("Centroid: error return %v", err)
	}
	if !centroid {
		t.Errorf("Centroid: false, should be true")
	}

	scanIndex, err := f.ScanIndex(`scan=2`)
	if err != nil {
		t.Errorf("ScanIndex: error return %v", err)
	}
	if scanIndex != 1 {
		t.Errorf("ScanIndex: %d, should be 1", scanIndex)
	}
	_, err = f.ScanIndex(`scan=3`)
	if err != ErrInvalidScanID {
		t.Errorf("ScanIndex: error return %v, should be ErrInvalidScanID", err)
	}
	scanID, err := f.ScanID(0)
	if err != nil {
		t.Errorf("ScanID: error return %v", err)
	}
	if scanID != `scan=1` {
		t.Errorf("ScanID: %s, should be scan=1", scanID)
	}
}

func TestUnsupportedCompression(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
  <run id="testRun">
    <spectrumList count="1">
      <spectrum index="0" id="scan=1" defaultArrayLength="1">
        <scanList count="1"><scan></scan></scanList>
        <binaryDataArrayList count="1">
          <binaryDataArray>
            <cvParam accession="MS:1002312" name="MS-Numpress linear prediction compression" value=""/>
            <cvParam accession="MS:1000514" name="m/z array" value=""/>
            <binary>AAAA</binary>
          </binaryDataArray>
        </binaryDataArrayList>
      </spectrum>
    </spectrumList>
  </run>
</mzML>
`
	f, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	_, err = f.ReadScan(0)
	if err != ErrUnsupportedCompression {
		t.Errorf("ReadScan: error return %v, should be ErrUnsupportedCompression", err)
	}
}
