package kmall

import "fmt"

// Phase sample encodings selected by WCRxInfo.PhaseFlag.
const (
	PhaseNone   = 0
	PhaseLowRes = 1
	PhaseHiRes  = 2
)

// WaterColumn is the #MWC multibeam water column datagram.
type WaterColumn struct {
	Partition Partition
	Common    CommonBody
	TxInfo    WCTxInfo
	Sectors   []WCSector
	RxInfo    WCRxInfo
	Beams     []WCBeam
}

func (*WaterColumn) Tag() Tag { return TagMWC }
func (*WaterColumn) isBody()  {}

type WCTxInfo struct {
	NumBytesTxInfo      uint16
	NumTxSectors        uint16
	NumBytesPerTxSector uint16
	Padding             int16
	HeaveM              float32
}

const wcTxInfoSize = 12

func (t *WCTxInfo) decodeFields(r *reader) {
	t.NumBytesTxInfo = r.u16()
	t.NumTxSectors = r.u16()
	t.NumBytesPerTxSector = r.u16()
	t.Padding = r.i16()
	t.HeaveM = r.f32()
}

func (t *WCTxInfo) encodeFields(w *writer) {
	w.u16(t.NumBytesTxInfo)
	w.u16(t.NumTxSectors)
	w.u16(t.NumBytesPerTxSector)
	w.i16(t.Padding)
	w.f32(t.HeaveM)
}

type WCSector struct {
	TiltAngleReTxDeg    float32
	CentreFreqHz        float32
	TxBeamWidthAlongDeg float32
	TxSectorNum         uint16
	Padding             int16
}

const wcSectorSize = 16

func (s *WCSector) decodeFields(r *reader) {
	s.TiltAngleReTxDeg = r.f32()
	s.CentreFreqHz = r.f32()
	s.TxBeamWidthAlongDeg = r.f32()
	s.TxSectorNum = r.u16()
	s.Padding = r.i16()
}

func (s *WCSector) encodeFields(w *writer) {
	w.f32(s.TiltAngleReTxDeg)
	w.f32(s.CentreFreqHz)
	w.f32(s.TxBeamWidthAlongDeg)
	w.u16(s.TxSectorNum)
	w.i16(s.Padding)
}

type WCRxInfo struct {
	NumBytesRxInfo       uint16
	NumBeams             uint16
	NumBytesPerBeamEntry uint8
	PhaseFlag            uint8
	TVGFunctionApplied   uint8
	TVGOffsetDB          int8
	SampleFreqHz         float32
	SoundVelocityMPerSec float32
}

const wcRxInfoSize = 16

func (x *WCRxInfo) decodeFields(r *reader) {
	x.NumBytesRxInfo = r.u16()
	x.NumBeams = r.u16()
	x.NumBytesPerBeamEntry = r.u8()
	x.PhaseFlag = r.u8()
	x.TVGFunctionApplied = r.u8()
	x.TVGOffsetDB = r.i8()
	x.SampleFreqHz = r.f32()
	x.SoundVelocityMPerSec = r.f32()
}

func (x *WCRxInfo) encodeFields(w *writer) {
	w.u16(x.NumBytesRxInfo)
	w.u16(x.NumBeams)
	w.u8(x.NumBytesPerBeamEntry)
	w.u8(x.PhaseFlag)
	w.u8(x.TVGFunctionApplied)
	w.i8(x.TVGOffsetDB)
	w.f32(x.SampleFreqHz)
	w.f32(x.SoundVelocityMPerSec)
}

// WCBeamHeader is the fixed part of a water column beam; its on-disk size
// comes from WCRxInfo.NumBytesPerBeamEntry.
type WCBeamHeader struct {
	BeamPointAngReVerticalDeg   float32
	StartRangeSampleNum         uint16
	DetectedRangeInSamples      uint16
	BeamTxSectorNum             uint16
	NumSampleData               uint16
	DetectedRangeInSamplesHiRes float32
}

const wcBeamHeaderSize = 16

func (h *WCBeamHeader) decodeFields(r *reader) {
	h.BeamPointAngReVerticalDeg = r.f32()
	h.StartRangeSampleNum = r.u16()
	h.DetectedRangeInSamples = r.u16()
	h.BeamTxSectorNum = r.u16()
	h.NumSampleData = r.u16()
	h.DetectedRangeInSamplesHiRes = r.f32()
}

func (h *WCBeamHeader) encodeFields(w *writer) {
	w.f32(h.BeamPointAngReVerticalDeg)
	w.u16(h.StartRangeSampleNum)
	w.u16(h.DetectedRangeInSamples)
	w.u16(h.BeamTxSectorNum)
	w.u16(h.NumSampleData)
	w.f32(h.DetectedRangeInSamplesHiRes)
}

// WCBeam is a beam header followed by NumSampleData amplitude samples and,
// depending on the phase flag, as many phase samples.
type WCBeam struct {
	WCBeamHeader
	Amplitude []int8
	PhaseLow  []int8
	PhaseHigh []int16
}

func decodeWaterColumn(r *reader, _ Header) (Body, error) {
	m := &WaterColumn{}
	if err := decodeBlock(r, partitionSize, &m.Partition); err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	if err := decodeFramed(r, &m.Common); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	if err := decodeFramed(r, &m.TxInfo); err != nil {
		return nil, fmt.Errorf("tx info: %w", err)
	}
	var err error
	m.Sectors, err = decodeArray[WCSector](r, int(m.TxInfo.NumTxSectors), int(m.TxInfo.NumBytesPerTxSector))
	if err != nil {
		return nil, fmt.Errorf("tx sectors: %w", err)
	}
	if err := decodeFramed(r, &m.RxInfo); err != nil {
		return nil, fmt.Errorf("rx info: %w", err)
	}
	if m.RxInfo.PhaseFlag > PhaseHiRes {
		return nil, fmt.Errorf("%w: phase flag %d", ErrMalformed, m.RxInfo.PhaseFlag)
	}
	numBeams := int(m.RxInfo.NumBeams)
	if numBeams == 0 {
		return m, nil
	}
	// Each beam needs at least its header; check before allocating.
	if numBeams*int(m.RxInfo.NumBytesPerBeamEntry) > r.remaining() {
		return nil, fmt.Errorf("beams: %w: %d beams of at least %d bytes, have %d", ErrTruncated, numBeams, m.RxInfo.NumBytesPerBeamEntry, r.remaining())
	}
	m.Beams = make([]WCBeam, numBeams)
	for i := range m.Beams {
		beam := &m.Beams[i]
		if err := decodeBlock(r, int(m.RxInfo.NumBytesPerBeamEntry), &beam.WCBeamHeader); err != nil {
			return nil, fmt.Errorf("beam %d: %w", i, err)
		}
		n := int(beam.NumSampleData)
		beam.Amplitude = r.i8s(n)
		switch m.RxInfo.PhaseFlag {
		case PhaseLowRes:
			beam.PhaseLow = r.i8s(n)
		case PhaseHiRes:
			beam.PhaseHigh = r.i16s(n)
		}
		if r.err != nil {
			return nil, fmt.Errorf("beam %d samples: %w", i, r.err)
		}
	}
	return m, nil
}

func (m *WaterColumn) normalized() (*WaterColumn, error) {
	out := *m
	out.TxInfo.NumTxSectors = uint16(len(m.Sectors))
	out.TxInfo.NumBytesPerTxSector = uint16(declaredOr(m.TxInfo.NumBytesPerTxSector, wcSectorSize))
	out.RxInfo.NumBeams = uint16(len(m.Beams))
	if out.RxInfo.NumBytesPerBeamEntry == 0 {
		out.RxInfo.NumBytesPerBeamEntry = wcBeamHeaderSize
	}
	if len(out.Sectors) > 0 && declaredOr(out.TxInfo.NumBytesTxInfo, wcTxInfoSize) < 6 {
		return nil, fmt.Errorf("%w: tx info too short to describe tx sectors", ErrMalformed)
	}
	if len(out.Beams) == 0 {
		return &out, nil
	}
	if declaredOr(out.RxInfo.NumBytesRxInfo, wcRxInfoSize) < 6 {
		return nil, fmt.Errorf("%w: rx info too short to describe beams", ErrMalformed)
	}
	out.Beams = make([]WCBeam, len(m.Beams))
	for i, beam := range m.Beams {
		n := len(beam.Amplitude)
		if n > 0 && out.RxInfo.NumBytesPerBeamEntry < 12 {
			return nil, fmt.Errorf("%w: beam entry of %d bytes cannot carry a sample count", ErrMalformed, out.RxInfo.NumBytesPerBeamEntry)
		}
		beam.NumSampleData = uint16(n)
		var phase int
		switch out.RxInfo.PhaseFlag {
		case PhaseNone:
		case PhaseLowRes:
			phase = len(beam.PhaseLow)
		case PhaseHiRes:
			phase = len(beam.PhaseHigh)
		default:
			return nil, fmt.Errorf("%w: phase flag %d", ErrMalformed, out.RxInfo.PhaseFlag)
		}
		if out.RxInfo.PhaseFlag != PhaseNone && phase != n {
			return nil, fmt.Errorf("%w: beam %d has %d amplitude and %d phase samples", ErrMalformed, i, n, phase)
		}
		out.Beams[i] = beam
	}
	return &out, nil
}

func encodeWaterColumn(w *writer, m *WaterColumn) error {
	n, err := m.normalized()
	if err != nil {
		return err
	}
	encodeBlock(w, partitionSize, &n.Partition)
	encodeFramed(w, declaredOr(n.Common.NumBytesCmnPart, commonBodySize), &n.Common)
	encodeFramed(w, declaredOr(n.TxInfo.NumBytesTxInfo, wcTxInfoSize), &n.TxInfo)
	encodeArray(w, n.Sectors, int(n.TxInfo.NumBytesPerTxSector))
	encodeFramed(w, declaredOr(n.RxInfo.NumBytesRxInfo, wcRxInfoSize), &n.RxInfo)
	for i := range n.Beams {
		beam := &n.Beams[i]
		encodeBlock(w, int(n.RxInfo.NumBytesPerBeamEntry), &beam.WCBeamHeader)
		w.i8s(beam.Amplitude)
		switch n.RxInfo.PhaseFlag {
		case PhaseLowRes:
			w.i8s(beam.PhaseLow)
		case PhaseHiRes:
			w.i16s(beam.PhaseHigh)
		}
	}
	return nil
}
