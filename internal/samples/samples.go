// Package samples builds a deterministic KMALL stream covering every
// supported datagram type.
package samples

import (
	"fmt"
	"math"

	"example.com/kmall/internal/kmall"
)

const (
	// FileName is the default output name of the sample stream.
	FileName = "0000_20231114_221320_sample.kmall"

	BaseTimeSec   uint32 = 1_700_000_000
	PingPeriodSec uint32 = 1

	SystemID      uint8  = 40
	EchoSounderID uint16 = 2040

	originLat = 63.4305
	originLon = 10.3951
)

// Config sizes the generated stream. Zero values take the defaults.
type Config struct {
	Pings       int
	Soundings   int
	WaterColumn bool
	Sentinels   bool
}

func (c Config) withDefaults() Config {
	if c.Pings <= 0 {
		c.Pings = 4
	}
	if c.Soundings <= 0 {
		c.Soundings = 8
	}
	return c
}

func header(tag kmall.Tag, sec, nsec uint32) kmall.Header {
	return kmall.Header{Tag: tag, Version: 1, SystemID: SystemID, EchoSounderID: EchoSounderID, TimeSec: sec, TimeNanosec: nsec}
}

func rec(body kmall.Body, sec, nsec uint32) kmall.Record {
	return kmall.Record{Header: header(body.Tag(), sec, nsec), Body: body}
}

// Build returns the sample records in stream order: installation and
// runtime parameters, a self-test reply, a sound velocity profile and a
// calibration file, followed by one group of sensor and ping datagrams per
// ping.
func Build(cfg Config) []kmall.Record {
	cfg = cfg.withDefaults()
	out := []kmall.Record{
		rec(&kmall.Parameters{Type: kmall.TagIIP, Text: "OSCV:Empty,EMXV:EM2040,PU_0,SN=40,IP=157.237.20.40:0xffff0000,SWLZ=0.0,"}, BaseTimeSec, 0),
		rec(&kmall.Parameters{Type: kmall.TagIOP, Text: "#RUNTIME PARAMETERS\nDepth setting: Auto\nPing mode: Auto\n"}, BaseTimeSec, 0),
		rec(&kmall.SelfTest{Type: kmall.TagIBS, Style: 1, Number: 3, Text: "BIST OK"}, BaseTimeSec, 0),
		rec(profile(), BaseTimeSec, 0),
		rec(&kmall.CalibrationFile{
			Partition: kmall.Partition{NumOfDgms: 1, DgmNum: 1},
			FileName:  "bscorr_300kHz.txt",
			Contents:  []byte("# backscatter calibration\n300000 0.0 0.0\n"),
		}, BaseTimeSec, 0),
	}
	for i := 0; i < cfg.Pings; i++ {
		sec := BaseTimeSec + uint32(i)*PingPeriodSec
		nsec := uint32(i%10) * 100_000_000
		lat, lon := track(i)
		out = append(out,
			rec(position(sec, nsec, lat, lon), sec, nsec),
			rec(attitude(sec, nsec, lat, lon), sec, nsec),
			rec(velocity(sec, nsec), sec, nsec),
			rec(&kmall.Clock{OffsetSec: 0.001, ClockDevPUMicrosec: int32(i), SensorData: "$GPZDA"}, sec, nsec),
			rec(&kmall.Height{SensorType: 1, HeightM: 41.5 + float32(i)/10}, sec, nsec),
			rec(&kmall.Depth{DepthUsedM: 2.1, DepthRawM: 2.1, Scale: 1, LatDeg: lat, LongDeg: lon}, sec, nsec),
			rec(&kmall.CompatPosition{Data: positionData(sec, nsec, lat, lon), SensorData: "$GPGGA"}, sec, nsec),
			rec(&kmall.CompatHeave{Common: kmall.CommonBody{PingCnt: uint16(i)}, HeaveM: float32(math.Sin(float64(i))) / 4}, sec, nsec),
			rec(bathymetry(i, cfg.Soundings, lat, lon), sec, nsec),
		)
		if cfg.WaterColumn {
			out = append(out, rec(waterColumn(i, cfg.Soundings), sec, nsec))
		}
		if cfg.Sentinels {
			out = append(out, kmall.Record{Header: kmall.Header{Tag: kmall.TagNull}})
		}
	}
	return out
}

// Write appends the sample records to w and returns how many were written.
func Write(w *kmall.Writer, cfg Config) (int, error) {
	recs := Build(cfg)
	for i, r := range recs {
		if _, err := w.Append(r); err != nil {
			return i, fmt.Errorf("sample %d (%s): %w", i, r.Tag, err)
		}
	}
	return len(recs), nil
}

// Bytes encodes the sample stream.
func Bytes(cfg Config) ([]byte, error) {
	ch := kmall.NewMemChannel(nil)
	if _, err := Write(kmall.NewWriter(ch), cfg); err != nil {
		return nil, err
	}
	return ch.Bytes(), nil
}

// track moves the vessel north-east at a constant rate.
func track(ping int) (lat, lon float64) {
	return originLat + float64(ping)*1e-5, originLon + float64(ping)*2e-5
}

func positionData(sec, nsec uint32, lat, lon float64) kmall.PositionData {
	return kmall.PositionData{
		TimeFromSensorSec:     sec,
		TimeFromSensorNanosec: nsec,
		PosFixQualityM:        0.05,
		CorrectedLatDeg:       lat,
		CorrectedLongDeg:      lon,
		SpeedOverGroundMPerS:  2.5,
		CourseOverGroundDeg:   45,
		EllipsoidHeightReRefM: 41.5,
	}
}

func position(sec, nsec uint32, lat, lon float64) *kmall.Position {
	return &kmall.Position{
		Common:     kmall.SensorCommon{SensorSystem: 1},
		Data:       positionData(sec, nsec, lat, lon),
		SensorData: fmt.Sprintf("$GPGGA,%d,%.6f,N,%.6f,E,4,12,0.7,41.5,M,,,,*00", sec, lat, lon),
	}
}

func attitude(sec, nsec uint32, lat, lon float64) *kmall.Attitude {
	a := &kmall.Attitude{Info: kmall.SKMInfo{SensorSystem: 1, SensorInputFormat: 1, SensorDataContents: 0x3F}}
	for j := uint32(0); j < 2; j++ {
		a.Samples = append(a.Samples, kmall.SKMSample{
			DgmType:      "#KMB",
			NumBytesDgm:  120,
			DgmVersion:   1,
			TimeSec:      sec,
			TimeNanosec:  nsec + j*50_000_000,
			LatitudeDeg:  lat,
			LongitudeDeg: lon,
			RollDeg:      0.5 * float32(j),
			PitchDeg:     -0.25,
			HeadingDeg:   45,
			HeaveM:       0.1,
		})
	}
	return a
}

func velocity(sec, nsec uint32) *kmall.SVT {
	return &kmall.SVT{
		Info:    kmall.SVTInfo{SensorInputFormat: 1, SensorDataContents: 0x3, FilterTimeSec: 1},
		Samples: []kmall.SVTSample{{TimeSec: sec, TimeNanosec: nsec, SoundVelocityMPerS: 1482.3, TemperatureC: 7.5}},
	}
}

func profile() *kmall.SVP {
	p := &kmall.SVP{SensorFormat: "S00", TimeSec: BaseTimeSec, LatitudeDeg: originLat, LongitudeDeg: originLon}
	for d := 0; d < 5; d++ {
		p.Samples = append(p.Samples, kmall.SVPSample{
			DepthM:             float32(d * 10),
			SoundVelocityMPerS: 1480 + float32(d),
			TemperatureC:       8 - float32(d)/2,
			Salinity:           34.5,
		})
	}
	return p
}

func bathymetry(ping, soundings int, lat, lon float64) *kmall.Bathymetry {
	b := &kmall.Bathymetry{
		Partition: kmall.Partition{NumOfDgms: 1, DgmNum: 1},
		Common:    kmall.CommonBody{PingCnt: uint16(ping), RxFansPerPing: 1, SwathsPerPing: 1, NumRxTransducers: 1, AlgorithmType: 1},
		PingInfo: kmall.PingInfo{
			PingRateHz:            1,
			FrequencyModeHz:       300_000,
			HeadingVesselDeg:      45,
			SoundSpeedAtTxDepth:   1482.3,
			LatitudeDeg:           lat,
			LongitudeDeg:          lon,
			EllipsoidHeightReRefM: 41.5,
		},
		RxInfo: kmall.RxInfo{NumSoundingsMaxMain: uint16(soundings), NumSoundingsValidMain: uint16(soundings), SeabedImageSampleRate: 7500},
	}
	for s := 0; s < 2; s++ {
		b.Sectors = append(b.Sectors, kmall.TxSector{TxSectorNumb: uint8(s), TiltAngleReTxDeg: float32(s) - 0.5, CentreFreqHz: 290_000 + float32(s)*20_000})
	}
	for k := 0; k < soundings; k++ {
		across := float32(k) - float32(soundings-1)/2
		n := 1 + k%3
		b.Soundings = append(b.Soundings, kmall.Sounding{
			SoundingIndex:       uint16(k),
			TxSectorNumb:        uint8(k * 2 / soundings),
			DetectionType:       1,
			TwoWayTravelTimeSec: 0.06 + float32(k)/1000,
			BeamAngleReRxDeg:    across * 5,
			ZReRefPointM:        -45 - float32(ping%5),
			YReRefPointM:        across * 4,
			SINumSamples:        uint16(n),
		})
		for j := 0; j < n; j++ {
			b.SeabedImageSamples = append(b.SeabedImageSamples, int16(-200-k-j))
		}
	}
	return b
}

func waterColumn(ping, beams int) *kmall.WaterColumn {
	m := &kmall.WaterColumn{
		Partition: kmall.Partition{NumOfDgms: 1, DgmNum: 1},
		Common:    kmall.CommonBody{PingCnt: uint16(ping), RxFansPerPing: 1, SwathsPerPing: 1, NumRxTransducers: 1},
		TxInfo:    kmall.WCTxInfo{HeaveM: 0.1},
		Sectors:   []kmall.WCSector{{CentreFreqHz: 300_000, TxBeamWidthAlongDeg: 1}},
		RxInfo:    kmall.WCRxInfo{PhaseFlag: kmall.PhaseLowRes, SampleFreqHz: 15_000, SoundVelocityMPerSec: 1482.3},
	}
	for k := 0; k < beams; k++ {
		n := 4 + k%4
		beam := kmall.WCBeam{WCBeamHeader: kmall.WCBeamHeader{BeamPointAngReVerticalDeg: float32(k) * 5, DetectedRangeInSamples: uint16(n - 1)}}
		for j := 0; j < n; j++ {
			beam.Amplitude = append(beam.Amplitude, int8(-10*j))
			beam.PhaseLow = append(beam.PhaseLow, int8(j))
		}
		m.Beams = append(m.Beams, beam)
	}
	return m
}
