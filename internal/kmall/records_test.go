package kmall

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func maximalBathymetry() *Bathymetry {
	b := testBathymetry(3, 5, 0, 4)
	b.RxInfo.NumSoundingsMaxMain = 2
	b.RxInfo.NumExtraDetections = 1
	b.RxInfo.NumSoundingsValidMain = 2
	b.RxInfo.NumExtraDetectionClasses = 1
	b.ExtraDetClasses = []ExtraDetClass{{NumExtraDetInClass: 1, AlarmFlag: 1}}
	return b
}

func maximalWaterColumn(phase uint8) *WaterColumn {
	m := &WaterColumn{
		Partition: Partition{NumOfDgms: 2, DgmNum: 1},
		Common:    CommonBody{NumBytesCmnPart: commonBodySize, PingCnt: 4},
		TxInfo:    WCTxInfo{NumBytesTxInfo: wcTxInfoSize, NumTxSectors: 2, NumBytesPerTxSector: wcSectorSize, HeaveM: -0.25},
		Sectors: []WCSector{
			{TiltAngleReTxDeg: -1.5, CentreFreqHz: 280_000, TxBeamWidthAlongDeg: 1, TxSectorNum: 0},
			{TiltAngleReTxDeg: 1.5, CentreFreqHz: 300_000, TxBeamWidthAlongDeg: 1, TxSectorNum: 1},
		},
		RxInfo: WCRxInfo{NumBytesRxInfo: wcRxInfoSize, NumBeams: 3, NumBytesPerBeamEntry: wcBeamHeaderSize, PhaseFlag: phase, SampleFreqHz: 12_000, SoundVelocityMPerSec: 1489.5},
	}
	for i, n := range []int{4, 0, 2} {
		beam := WCBeam{WCBeamHeader: WCBeamHeader{BeamPointAngReVerticalDeg: float32(i*10) - 10, StartRangeSampleNum: 1, NumSampleData: uint16(n), BeamTxSectorNum: uint16(i % 2)}}
		for j := 0; j < n; j++ {
			beam.Amplitude = append(beam.Amplitude, int8(-j-1))
			switch phase {
			case PhaseLowRes:
				beam.PhaseLow = append(beam.PhaseLow, int8(j))
			case PhaseHiRes:
				beam.PhaseHigh = append(beam.PhaseHigh, int16(1000*j-5))
			}
		}
		m.Beams = append(m.Beams, beam)
	}
	return m
}

func skmSample(i int) SKMSample {
	return SKMSample{
		DgmType:                 "#KMB",
		NumBytesDgm:             120,
		DgmVersion:              1,
		TimeSec:                 1_700_000_000 + uint32(i),
		Status:                  0x10,
		LatitudeDeg:             63.4305,
		LongitudeDeg:            -10.3951,
		RollDeg:                 0.5,
		PitchDeg:                -0.25,
		HeadingDeg:              181,
		HeaveM:                  0.05,
		VelNorth:                1,
		DownAcceleration:        9.8,
		DelayedHeaveTimeSec:     1_700_000_000,
		DelayedHeaveTimeNanosec: 5,
		DelayedHeaveM:           0.04,
	}
}

func TestBodyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		body Body
	}{
		{name: "MRZ minimal", body: testBathymetry(0)},
		{name: "MRZ maximal", body: maximalBathymetry()},
		{name: "MWC minimal", body: &WaterColumn{
			Partition: Partition{NumOfDgms: 1, DgmNum: 1},
			Common:    CommonBody{NumBytesCmnPart: commonBodySize},
			TxInfo:    WCTxInfo{NumBytesTxInfo: wcTxInfoSize, NumBytesPerTxSector: wcSectorSize},
			RxInfo:    WCRxInfo{NumBytesRxInfo: wcRxInfoSize, NumBytesPerBeamEntry: wcBeamHeaderSize},
		}},
		{name: "MWC amplitude only", body: maximalWaterColumn(PhaseNone)},
		{name: "MWC low resolution phase", body: maximalWaterColumn(PhaseLowRes)},
		{name: "MWC high resolution phase", body: maximalWaterColumn(PhaseHiRes)},
		{name: "SPO minimal", body: &Position{Common: SensorCommon{NumBytesCmnPart: sensorCommonSize}}},
		{name: "SPO maximal", body: testPosition()},
		{name: "CPO", body: &CompatPosition{
			Common:     SensorCommon{NumBytesCmnPart: sensorCommonSize, SensorSystem: 2},
			Data:       PositionData{CorrectedLatDeg: UnavailableLatitude, CorrectedLongDeg: UnavailableLongitude, PosFixQualityM: 1},
			SensorData: "$GPGGA,,,,,,0,,,,,,,,*66",
		}},
		{name: "SDE", body: &Depth{
			Common:     SensorCommon{NumBytesCmnPart: sensorCommonSize},
			DepthUsedM: 12.5,
			DepthRawM:  12.45,
			Offset:     0.05,
			Scale:      1,
			LatDeg:     -0.000001,
			LongDeg:    0.000001,
			SensorData: "depth 12.45",
		}},
		{name: "SHI", body: &Height{Common: SensorCommon{NumBytesCmnPart: sensorCommonSize}, SensorType: 1, HeightM: -3.25, SensorData: "hgt"}},
		{name: "SCL", body: &Clock{Common: SensorCommon{NumBytesCmnPart: sensorCommonSize}, OffsetSec: 0.002, ClockDevPUMicrosec: -150, SensorData: "$GPZDA,000000.00,14,11,2023,,*00"}},
		{name: "CHE", body: &CompatHeave{Common: CommonBody{NumBytesCmnPart: commonBodySize, PingCnt: 9}, HeaveM: 0.75}},
		{name: "SKM minimal", body: &Attitude{Info: SKMInfo{NumBytesInfoPart: skmInfoSize, NumBytesPerSample: skmSampleSize}}},
		{name: "SKM maximal", body: &Attitude{
			Info:    SKMInfo{NumBytesInfoPart: skmInfoSize, SensorSystem: 1, SensorStatus: 1, SensorInputFormat: 1, NumSamplesArray: 2, NumBytesPerSample: skmSampleSize, SensorDataContents: 0x3F},
			Samples: []SKMSample{skmSample(0), skmSample(1)},
		}},
		{name: "SVT minimal", body: &SVT{Info: SVTInfo{NumBytesInfoPart: svtInfoSize, NumBytesPerSample: svtSampleSize}}},
		{name: "SVT maximal", body: &SVT{
			Info: SVTInfo{NumBytesInfoPart: svtInfoSize, NumSamplesArray: 2, NumBytesPerSample: svtSampleSize, FilterTimeSec: 1, SoundVelocityOffset: 0.5},
			Samples: []SVTSample{
				{TimeSec: 1, SoundVelocityMPerS: 1490.25, TemperatureC: 8.5, PressurePa: 101_000, Salinity: 35},
				{TimeSec: 2, TimeNanosec: 500, SoundVelocityMPerS: 1490.5},
			},
		}},
		{name: "SVP minimal", body: &SVP{NumBytesCmnPart: svpCommonSize}},
		{name: "SVP maximal", body: &SVP{
			NumBytesCmnPart: svpCommonSize,
			NumSamples:      3,
			SensorFormat:    "S01",
			TimeSec:         1_700_000_000,
			LatitudeDeg:     UnavailableLatitude,
			LongitudeDeg:    5.3221,
			Samples: []SVPSample{
				{DepthM: 0, SoundVelocityMPerS: 1495},
				{DepthM: 10, SoundVelocityMPerS: 1490, TemperatureC: 9},
				{DepthM: 2000, SoundVelocityMPerS: 1500, Salinity: 34.9},
			},
		}},
		{name: "FCF minimal", body: &CalibrationFile{Partition: Partition{NumOfDgms: 1, DgmNum: 1}, NumBytesCmnPart: fcfCommonSize}},
		{name: "FCF maximal", body: &CalibrationFile{
			Partition:       Partition{NumOfDgms: 1, DgmNum: 1},
			NumBytesCmnPart: fcfCommonSize,
			FileStatus:      1,
			NumBytesFile:    9,
			FileName:        "bscorr_300.txt",
			Contents:        []byte("# BSCorr\n"),
		}},
		{name: "IIP", body: &Parameters{Type: TagIIP, NumBytesCmnPart: parametersCommonSize, Info: 1, Text: "OSCV:Empty,EMXV:EM2040,"}},
		{name: "IOP minimal", body: &Parameters{Type: TagIOP, NumBytesCmnPart: parametersCommonSize}},
		{name: "IBE", body: &SelfTest{Type: TagIBE, NumBytesCmnPart: selfTestCommonSize, Number: 3, Status: -1, Text: "TX36 failed"}},
		{name: "IBR", body: &SelfTest{Type: TagIBR, NumBytesCmnPart: selfTestCommonSize, Info: 1, Style: 2, Text: "OK"}},
		{name: "IBS", body: &SelfTest{Type: TagIBS, NumBytesCmnPart: selfTestCommonSize}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := record(tc.body)
			buf := mustMarshal(t, rec)
			length := binary.LittleEndian.Uint32(buf)
			if int(length) != len(buf) {
				t.Fatalf("header length = %d, encoded %d bytes", length, len(buf))
			}
			if trailer := binary.LittleEndian.Uint32(buf[len(buf)-trailerSize:]); trailer != length {
				t.Fatalf("trailing length = %d, want %d", trailer, length)
			}
			got, err := Unmarshal(buf)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			want := rec.Header
			want.Length = length
			if got.Header != want {
				t.Fatalf("header = %+v, want %+v", got.Header, want)
			}
			if !reflect.DeepEqual(got.Body, tc.body) {
				t.Fatalf("body mismatch\n got %+v\nwant %+v", got.Body, tc.body)
			}
		})
	}
}

func TestEncodeRecomputesCounts(t *testing.T) {
	b := testBathymetry(2, 3, 3)
	// Mutate after construction: counts in the blocks are stale.
	b.Sectors = b.Sectors[:1]
	b.Soundings = append(b.Soundings, Sounding{SoundingIndex: 2, SINumSamples: 2})
	b.SeabedImageSamples = append(b.SeabedImageSamples, 11, 12)
	got, err := Unmarshal(mustMarshal(t, record(b)))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	mrz := got.Body.(*Bathymetry)
	if mrz.PingInfo.NumTxSectors != 1 || len(mrz.Sectors) != 1 {
		t.Fatalf("sectors = %d (count %d), want 1", len(mrz.Sectors), mrz.PingInfo.NumTxSectors)
	}
	if mrz.RxInfo.NumSoundingsMaxMain != 2 || mrz.RxInfo.NumExtraDetections != 1 {
		t.Fatalf("main/extra = %d/%d, want 2/1", mrz.RxInfo.NumSoundingsMaxMain, mrz.RxInfo.NumExtraDetections)
	}
	if len(mrz.SeabedImageSamples) != 8 {
		t.Fatalf("samples = %d, want 8", len(mrz.SeabedImageSamples))
	}
}

func TestEncodeRejectsInconsistentBodies(t *testing.T) {
	samples := testBathymetry(1, 4)
	samples.SeabedImageSamples = samples.SeabedImageSamples[:3]

	shortSounding := testBathymetry(1, 2, 1)
	shortSounding.RxInfo.NumBytesPerSounding = soundingSize - 2

	shortPing := testBathymetry(1)
	shortPing.PingInfo.NumBytesInfoData = 64

	phase := maximalWaterColumn(PhaseHiRes)
	phase.Beams[0].PhaseHigh = phase.Beams[0].PhaseHigh[:1]

	tests := []struct {
		name string
		body Body
	}{
		{name: "seabed sample count", body: samples},
		{name: "sounding cannot carry sample count", body: shortSounding},
		{name: "ping info cannot carry sector count", body: shortPing},
		{name: "phase sample count", body: phase},
		{name: "parameters with foreign tag", body: &Parameters{Type: TagIBE}},
		{name: "self-test with foreign tag", body: &SelfTest{Type: TagIIP}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Marshal(record(tc.body)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("Marshal error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestOlderPingInfoRevision(t *testing.T) {
	b := testBathymetry(2, 1)
	b.PingInfo.NumBytesInfoData = 100
	got, err := Unmarshal(mustMarshal(t, record(b)))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	mrz := got.Body.(*Bathymetry)
	if mrz.PingInfo.NumBytesInfoData != 100 {
		t.Fatalf("NumBytesInfoData = %d, want 100", mrz.PingInfo.NumBytesInfoData)
	}
	// Fields past the declared length are not present in the older layout.
	if mrz.PingInfo.LatitudeDeg != 0 || mrz.PingInfo.HeadingVesselDeg != b.PingInfo.HeadingVesselDeg {
		t.Fatalf("ping info = %+v", mrz.PingInfo)
	}
	if !reflect.DeepEqual(mrz.Sectors, b.Sectors) || !reflect.DeepEqual(mrz.SeabedImageSamples, b.SeabedImageSamples) {
		t.Fatalf("arrays after a short ping info do not round trip")
	}
}

func TestNewerSoundingRevision(t *testing.T) {
	b := testBathymetry(1, 2, 3)
	b.RxInfo.NumBytesPerSounding = soundingSize + 8
	got, err := Unmarshal(mustMarshal(t, record(b)))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got.Body, b) {
		t.Fatalf("body mismatch\n got %+v\nwant %+v", got.Body, b)
	}
}

func TestOlderSoundingRevisionWithoutSamples(t *testing.T) {
	b := testBathymetry(1, 0, 0)
	b.RxInfo.NumBytesPerSounding = soundingSize - 8
	got, err := Unmarshal(mustMarshal(t, record(b)))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	mrz := got.Body.(*Bathymetry)
	if len(mrz.Soundings) != 2 || mrz.RxInfo.NumBytesPerSounding != soundingSize-8 {
		t.Fatalf("soundings = %d of %d bytes", len(mrz.Soundings), mrz.RxInfo.NumBytesPerSounding)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	buf := mustMarshal(t, record(testPosition()))
	unknown := append([]byte(nil), buf...)
	copy(unknown[4:8], "#XYZ")
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{name: "short header", buf: buf[:10], want: ErrTruncated},
		{name: "short datagram", buf: buf[:len(buf)-1], want: ErrTruncated},
		{name: "unknown tag", buf: unknown, want: ErrUnsupportedType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Unmarshal(tc.buf); !errors.Is(err, tc.want) {
				t.Fatalf("Unmarshal error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegistryCoversKnownTags(t *testing.T) {
	want := []Tag{TagCHE, TagCPO, TagFCF, TagIBE, TagIBR, TagIBS, TagIIP, TagIOP, TagMRZ, TagMWC, TagSCL, TagSDE, TagSHI, TagSKM, TagSPO, TagSVP, TagSVT}
	if got := Tags(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Tags() = %v, want %v", got, want)
	}
	if Supported(TagNull) {
		t.Fatalf("sentinel must not have a payload decoder")
	}
}
