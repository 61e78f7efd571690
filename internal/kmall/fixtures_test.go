package kmall

import "testing"

func testHeader(tag Tag) Header {
	return Header{Tag: tag, Version: 1, SystemID: 40, EchoSounderID: 2040, TimeSec: 1_700_000_000, TimeNanosec: 250_000_000}
}

func testBathymetry(sectors int, samples ...int) *Bathymetry {
	b := &Bathymetry{
		Partition: Partition{NumOfDgms: 1, DgmNum: 1},
		Common:    CommonBody{NumBytesCmnPart: commonBodySize, PingCnt: 17, RxFansPerPing: 1, SwathsPerPing: 1, NumRxTransducers: 1, AlgorithmType: 1},
		PingInfo: PingInfo{
			NumBytesInfoData:      pingInfoSize,
			PingRateHz:            2.5,
			FrequencyModeHz:       300_000,
			NumTxSectors:          uint16(sectors),
			NumBytesPerTxSector:   txSectorSize,
			HeadingVesselDeg:      87.25,
			LatitudeDeg:           59.91273,
			LongitudeDeg:          10.74609,
			EllipsoidHeightReRefM: 41.5,
		},
		RxInfo: RxInfo{
			NumBytesRxInfo:        rxInfoSize,
			NumSoundingsMaxMain:   uint16(len(samples)),
			NumBytesPerSounding:   soundingSize,
			NumBytesPerClass:      extraDetClassSize,
			SeabedImageSampleRate: 7500,
		},
	}
	for i := 0; i < sectors; i++ {
		b.Sectors = append(b.Sectors, TxSector{TxSectorNumb: uint8(i), TiltAngleReTxDeg: float32(i) - 0.5, CentreFreqHz: 290_000 + float32(i)*10_000})
	}
	var seq int16
	for i, n := range samples {
		b.Soundings = append(b.Soundings, Sounding{
			SoundingIndex:       uint16(i),
			DetectionType:       1,
			TwoWayTravelTimeSec: 0.05 + float32(i)/100,
			ZReRefPointM:        -42.5 + float32(i),
			SINumSamples:        uint16(n),
		})
		for j := 0; j < n; j++ {
			seq--
			b.SeabedImageSamples = append(b.SeabedImageSamples, seq)
		}
	}
	return b
}

func testPosition() *Position {
	return &Position{
		Common: SensorCommon{NumBytesCmnPart: sensorCommonSize, SensorSystem: 1, SensorStatus: 0x2},
		Data: PositionData{
			TimeFromSensorSec:     1_700_000_000,
			TimeFromSensorNanosec: 125_000,
			PosFixQualityM:        0.25,
			CorrectedLatDeg:       -33.85,
			CorrectedLongDeg:      151.2,
			SpeedOverGroundMPerS:  4.5,
			CourseOverGroundDeg:   270,
		},
		SensorData: "$GPGGA,000000.00,3351.0000,S,15112.0000,E,1,08,0.9,5.0,M,,,,*00",
	}
}

func record(body Body) Record {
	return Record{Header: testHeader(body.Tag()), Body: body}
}

func mustMarshal(t *testing.T, rec Record) []byte {
	t.Helper()
	buf, err := Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal(%s): %v", recordTag(rec), err)
	}
	return buf
}

// stream concatenates encoded datagrams and returns the offset of each.
func stream(t *testing.T, recs ...Record) ([]byte, []int64) {
	t.Helper()
	var out []byte
	var offsets []int64
	for _, rec := range recs {
		offsets = append(offsets, int64(len(out)))
		out = append(out, mustMarshal(t, rec)...)
	}
	return out, offsets
}

func sentinel() Record {
	return Record{Header: Header{Tag: TagNull}}
}
