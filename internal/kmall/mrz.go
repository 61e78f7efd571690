package kmall

import "fmt"

// Bathymetry is the #MRZ multibeam raw range and depth datagram.
type Bathymetry struct {
	Partition          Partition
	Common             CommonBody
	PingInfo           PingInfo
	Sectors            []TxSector
	RxInfo             RxInfo
	ExtraDetClasses    []ExtraDetClass
	Soundings          []Sounding
	SeabedImageSamples []int16
}

func (*Bathymetry) Tag() Tag { return TagMRZ }
func (*Bathymetry) isBody()  {}

// PingInfo holds ping-wide settings, including the sizes of the tx sector
// array that follows it.
type PingInfo struct {
	NumBytesInfoData         uint16
	Padding0                 uint16
	PingRateHz               float32
	BeamSpacing              uint8
	DepthMode                uint8
	SubDepthMode             uint8
	DistanceBtwSwath         uint8
	DetectionMode            uint8
	PulseForm                uint8
	Padding1                 uint16
	FrequencyModeHz          float32
	FreqRangeLowLimHz        float32
	FreqRangeHighLimHz       float32
	MaxTotalTxPulseLengthSec float32
	MaxEffTxPulseLengthSec   float32
	MaxEffTxBandWidthHz      float32
	AbsCoeffDBPerKm          float32
	PortSectorEdgeDeg        float32
	StarbSectorEdgeDeg       float32
	PortMeanCovDeg           float32
	StarbMeanCovDeg          float32
	PortMeanCovM             int16
	StarbMeanCovM            int16
	ModeAndStabilisation     uint8
	RuntimeFilter1           uint8
	RuntimeFilter2           uint16
	PipeTrackingStatus       uint32
	TransmitArraySizeUsedDeg float32
	ReceiveArraySizeUsedDeg  float32
	TransmitPowerDB          float32
	SLRampUpTimeRemaining    uint16
	Padding2                 uint16
	YawAngleDeg              float32
	NumTxSectors             uint16
	NumBytesPerTxSector      uint16
	HeadingVesselDeg         float32
	SoundSpeedAtTxDepth      float32
	TxTransducerDepthM       float32
	ZWaterLevelReRefPointM   float32
	XKmallToAllM             float32
	YKmallToAllM             float32
	LatLongInfo              uint8
	PosSensorStatus          uint8
	AttitudeSensorStatus     uint8
	Padding3                 uint8
	LatitudeDeg              float64
	LongitudeDeg             float64
	EllipsoidHeightReRefM    float32
	BSCorrectionOffsetDB     float32
	LambertsLawApplied       uint8
	IceWindow                uint8
	ActiveModes              uint16
}

const pingInfoSize = 152

func (p *PingInfo) decodeFields(r *reader) {
	p.NumBytesInfoData = r.u16()
	p.Padding0 = r.u16()
	p.PingRateHz = r.f32()
	p.BeamSpacing = r.u8()
	p.DepthMode = r.u8()
	p.SubDepthMode = r.u8()
	p.DistanceBtwSwath = r.u8()
	p.DetectionMode = r.u8()
	p.PulseForm = r.u8()
	p.Padding1 = r.u16()
	p.FrequencyModeHz = r.f32()
	p.FreqRangeLowLimHz = r.f32()
	p.FreqRangeHighLimHz = r.f32()
	p.MaxTotalTxPulseLengthSec = r.f32()
	p.MaxEffTxPulseLengthSec = r.f32()
	p.MaxEffTxBandWidthHz = r.f32()
	p.AbsCoeffDBPerKm = r.f32()
	p.PortSectorEdgeDeg = r.f32()
	p.StarbSectorEdgeDeg = r.f32()
	p.PortMeanCovDeg = r.f32()
	p.StarbMeanCovDeg = r.f32()
	p.PortMeanCovM = r.i16()
	p.StarbMeanCovM = r.i16()
	p.ModeAndStabilisation = r.u8()
	p.RuntimeFilter1 = r.u8()
	p.RuntimeFilter2 = r.u16()
	p.PipeTrackingStatus = r.u32()
	p.TransmitArraySizeUsedDeg = r.f32()
	p.ReceiveArraySizeUsedDeg = r.f32()
	p.TransmitPowerDB = r.f32()
	p.SLRampUpTimeRemaining = r.u16()
	p.Padding2 = r.u16()
	p.YawAngleDeg = r.f32()
	p.NumTxSectors = r.u16()
	p.NumBytesPerTxSector = r.u16()
	p.HeadingVesselDeg = r.f32()
	p.SoundSpeedAtTxDepth = r.f32()
	p.TxTransducerDepthM = r.f32()
	p.ZWaterLevelReRefPointM = r.f32()
	p.XKmallToAllM = r.f32()
	p.YKmallToAllM = r.f32()
	p.LatLongInfo = r.u8()
	p.PosSensorStatus = r.u8()
	p.AttitudeSensorStatus = r.u8()
	p.Padding3 = r.u8()
	p.LatitudeDeg = r.latitude("pingInfo.latitude")
	p.LongitudeDeg = r.longitude("pingInfo.longitude")
	p.EllipsoidHeightReRefM = r.f32()
	p.BSCorrectionOffsetDB = r.f32()
	p.LambertsLawApplied = r.u8()
	p.IceWindow = r.u8()
	p.ActiveModes = r.u16()
}

func (p *PingInfo) encodeFields(w *writer) {
	w.u16(p.NumBytesInfoData)
	w.u16(p.Padding0)
	w.f32(p.PingRateHz)
	w.u8(p.BeamSpacing)
	w.u8(p.DepthMode)
	w.u8(p.SubDepthMode)
	w.u8(p.DistanceBtwSwath)
	w.u8(p.DetectionMode)
	w.u8(p.PulseForm)
	w.u16(p.Padding1)
	w.f32(p.FrequencyModeHz)
	w.f32(p.FreqRangeLowLimHz)
	w.f32(p.FreqRangeHighLimHz)
	w.f32(p.MaxTotalTxPulseLengthSec)
	w.f32(p.MaxEffTxPulseLengthSec)
	w.f32(p.MaxEffTxBandWidthHz)
	w.f32(p.AbsCoeffDBPerKm)
	w.f32(p.PortSectorEdgeDeg)
	w.f32(p.StarbSectorEdgeDeg)
	w.f32(p.PortMeanCovDeg)
	w.f32(p.StarbMeanCovDeg)
	w.i16(p.PortMeanCovM)
	w.i16(p.StarbMeanCovM)
	w.u8(p.ModeAndStabilisation)
	w.u8(p.RuntimeFilter1)
	w.u16(p.RuntimeFilter2)
	w.u32(p.PipeTrackingStatus)
	w.f32(p.TransmitArraySizeUsedDeg)
	w.f32(p.ReceiveArraySizeUsedDeg)
	w.f32(p.TransmitPowerDB)
	w.u16(p.SLRampUpTimeRemaining)
	w.u16(p.Padding2)
	w.f32(p.YawAngleDeg)
	w.u16(p.NumTxSectors)
	w.u16(p.NumBytesPerTxSector)
	w.f32(p.HeadingVesselDeg)
	w.f32(p.SoundSpeedAtTxDepth)
	w.f32(p.TxTransducerDepthM)
	w.f32(p.ZWaterLevelReRefPointM)
	w.f32(p.XKmallToAllM)
	w.f32(p.YKmallToAllM)
	w.u8(p.LatLongInfo)
	w.u8(p.PosSensorStatus)
	w.u8(p.AttitudeSensorStatus)
	w.u8(p.Padding3)
	w.geoField(p.LatitudeDeg)
	w.geoField(p.LongitudeDeg)
	w.f32(p.EllipsoidHeightReRefM)
	w.f32(p.BSCorrectionOffsetDB)
	w.u8(p.LambertsLawApplied)
	w.u8(p.IceWindow)
	w.u16(p.ActiveModes)
}

// TxSector describes one transmit sector. Its on-disk size comes from
// PingInfo.NumBytesPerTxSector.
type TxSector struct {
	TxSectorNumb             uint8
	TxArrNumber              uint8
	TxSubArray               uint8
	Padding0                 uint8
	SectorTransmitDelaySec   float32
	TiltAngleReTxDeg         float32
	TxNominalSourceLevelDB   float32
	TxFocusRangeM            float32
	CentreFreqHz             float32
	SignalBandWidthHz        float32
	TotalSignalLengthSec     float32
	PulseShading             uint8
	SignalWaveForm           uint8
	Padding1                 uint16
	HighVoltageLevelDB       float32
	SectorTrackingCorrDB     float32
	EffectiveSignalLengthSec float32
}

const txSectorSize = 48

func (s *TxSector) decodeFields(r *reader) {
	s.TxSectorNumb = r.u8()
	s.TxArrNumber = r.u8()
	s.TxSubArray = r.u8()
	s.Padding0 = r.u8()
	s.SectorTransmitDelaySec = r.f32()
	s.TiltAngleReTxDeg = r.f32()
	s.TxNominalSourceLevelDB = r.f32()
	s.TxFocusRangeM = r.f32()
	s.CentreFreqHz = r.f32()
	s.SignalBandWidthHz = r.f32()
	s.TotalSignalLengthSec = r.f32()
	s.PulseShading = r.u8()
	s.SignalWaveForm = r.u8()
	s.Padding1 = r.u16()
	s.HighVoltageLevelDB = r.f32()
	s.SectorTrackingCorrDB = r.f32()
	s.EffectiveSignalLengthSec = r.f32()
}

func (s *TxSector) encodeFields(w *writer) {
	w.u8(s.TxSectorNumb)
	w.u8(s.TxArrNumber)
	w.u8(s.TxSubArray)
	w.u8(s.Padding0)
	w.f32(s.SectorTransmitDelaySec)
	w.f32(s.TiltAngleReTxDeg)
	w.f32(s.TxNominalSourceLevelDB)
	w.f32(s.TxFocusRangeM)
	w.f32(s.CentreFreqHz)
	w.f32(s.SignalBandWidthHz)
	w.f32(s.TotalSignalLengthSec)
	w.u8(s.PulseShading)
	w.u8(s.SignalWaveForm)
	w.u16(s.Padding1)
	w.f32(s.HighVoltageLevelDB)
	w.f32(s.SectorTrackingCorrDB)
	w.f32(s.EffectiveSignalLengthSec)
}

// RxInfo carries the counts and element sizes of the class and sounding arrays.
type RxInfo struct {
	NumBytesRxInfo           uint16
	NumSoundingsMaxMain      uint16
	NumSoundingsValidMain    uint16
	NumBytesPerSounding      uint16
	WCSampleRate             float32
	SeabedImageSampleRate    float32
	BSNormalDB               float32
	BSObliqueDB              float32
	ExtraDetectionAlarmFlag  uint16
	NumExtraDetections       uint16
	NumExtraDetectionClasses uint16
	NumBytesPerClass         uint16
}

const rxInfoSize = 32

func (x *RxInfo) decodeFields(r *reader) {
	x.NumBytesRxInfo = r.u16()
	x.NumSoundingsMaxMain = r.u16()
	x.NumSoundingsValidMain = r.u16()
	x.NumBytesPerSounding = r.u16()
	x.WCSampleRate = r.f32()
	x.SeabedImageSampleRate = r.f32()
	x.BSNormalDB = r.f32()
	x.BSObliqueDB = r.f32()
	x.ExtraDetectionAlarmFlag = r.u16()
	x.NumExtraDetections = r.u16()
	x.NumExtraDetectionClasses = r.u16()
	x.NumBytesPerClass = r.u16()
}

func (x *RxInfo) encodeFields(w *writer) {
	w.u16(x.NumBytesRxInfo)
	w.u16(x.NumSoundingsMaxMain)
	w.u16(x.NumSoundingsValidMain)
	w.u16(x.NumBytesPerSounding)
	w.f32(x.WCSampleRate)
	w.f32(x.SeabedImageSampleRate)
	w.f32(x.BSNormalDB)
	w.f32(x.BSObliqueDB)
	w.u16(x.ExtraDetectionAlarmFlag)
	w.u16(x.NumExtraDetections)
	w.u16(x.NumExtraDetectionClasses)
	w.u16(x.NumBytesPerClass)
}

// ExtraDetClass summarises one extra detection class.
type ExtraDetClass struct {
	NumExtraDetInClass uint16
	Padding            int8
	AlarmFlag          uint8
}

const extraDetClassSize = 4

func (c *ExtraDetClass) decodeFields(r *reader) {
	c.NumExtraDetInClass = r.u16()
	c.Padding = r.i8()
	c.AlarmFlag = r.u8()
}

func (c *ExtraDetClass) encodeFields(w *writer) {
	w.u16(c.NumExtraDetInClass)
	w.i8(c.Padding)
	w.u8(c.AlarmFlag)
}

// Sounding is one depth and reflectivity detection. SINumSamples counts this
// sounding's share of the flat seabed image sample array.
type Sounding struct {
	SoundingIndex            uint16
	TxSectorNumb             uint8
	DetectionType            uint8
	DetectionMethod          uint8
	RejectionInfo1           uint8
	RejectionInfo2           uint8
	PostProcessingInfo       uint8
	DetectionClass           uint8
	DetectionConfidenceLevel uint8
	Padding                  uint16
	RangeFactor              float32
	QualityFactor            float32
	DetectionUncertaintyVerM float32
	DetectionUncertaintyHorM float32
	DetectionWindowLengthSec float32
	EchoLengthSec            float32
	WCBeamNumb               uint16
	WCRangeSamples           uint16
	WCNomBeamAngleAcrossDeg  float32
	MeanAbsCoeffDBPerKm      float32
	Reflectivity1DB          float32
	Reflectivity2DB          float32
	ReceiverSensitivityDB    float32
	SourceLevelAppliedDB     float32
	BSCalibrationDB          float32
	TVGDB                    float32
	BeamAngleReRxDeg         float32
	BeamAngleCorrectionDeg   float32
	TwoWayTravelTimeSec      float32
	TwoWayTravelTimeCorrSec  float32
	DeltaLatitudeDeg         float32
	DeltaLongitudeDeg        float32
	ZReRefPointM             float32
	YReRefPointM             float32
	XReRefPointM             float32
	BeamIncAngleAdjDeg       float32
	RealTimeCleanInfo        uint16
	SIStartRangeSamples      uint16
	SICentreSample           uint16
	SINumSamples             uint16
}

const soundingSize = 120

func (s *Sounding) decodeFields(r *reader) {
	s.SoundingIndex = r.u16()
	s.TxSectorNumb = r.u8()
	s.DetectionType = r.u8()
	s.DetectionMethod = r.u8()
	s.RejectionInfo1 = r.u8()
	s.RejectionInfo2 = r.u8()
	s.PostProcessingInfo = r.u8()
	s.DetectionClass = r.u8()
	s.DetectionConfidenceLevel = r.u8()
	s.Padding = r.u16()
	s.RangeFactor = r.f32()
	s.QualityFactor = r.f32()
	s.DetectionUncertaintyVerM = r.f32()
	s.DetectionUncertaintyHorM = r.f32()
	s.DetectionWindowLengthSec = r.f32()
	s.EchoLengthSec = r.f32()
	s.WCBeamNumb = r.u16()
	s.WCRangeSamples = r.u16()
	s.WCNomBeamAngleAcrossDeg = r.f32()
	s.MeanAbsCoeffDBPerKm = r.f32()
	s.Reflectivity1DB = r.f32()
	s.Reflectivity2DB = r.f32()
	s.ReceiverSensitivityDB = r.f32()
	s.SourceLevelAppliedDB = r.f32()
	s.BSCalibrationDB = r.f32()
	s.TVGDB = r.f32()
	s.BeamAngleReRxDeg = r.f32()
	s.BeamAngleCorrectionDeg = r.f32()
	s.TwoWayTravelTimeSec = r.f32()
	s.TwoWayTravelTimeCorrSec = r.f32()
	s.DeltaLatitudeDeg = r.f32()
	s.DeltaLongitudeDeg = r.f32()
	s.ZReRefPointM = r.f32()
	s.YReRefPointM = r.f32()
	s.XReRefPointM = r.f32()
	s.BeamIncAngleAdjDeg = r.f32()
	s.RealTimeCleanInfo = r.u16()
	s.SIStartRangeSamples = r.u16()
	s.SICentreSample = r.u16()
	s.SINumSamples = r.u16()
}

func (s *Sounding) encodeFields(w *writer) {
	w.u16(s.SoundingIndex)
	w.u8(s.TxSectorNumb)
	w.u8(s.DetectionType)
	w.u8(s.DetectionMethod)
	w.u8(s.RejectionInfo1)
	w.u8(s.RejectionInfo2)
	w.u8(s.PostProcessingInfo)
	w.u8(s.DetectionClass)
	w.u8(s.DetectionConfidenceLevel)
	w.u16(s.Padding)
	w.f32(s.RangeFactor)
	w.f32(s.QualityFactor)
	w.f32(s.DetectionUncertaintyVerM)
	w.f32(s.DetectionUncertaintyHorM)
	w.f32(s.DetectionWindowLengthSec)
	w.f32(s.EchoLengthSec)
	w.u16(s.WCBeamNumb)
	w.u16(s.WCRangeSamples)
	w.f32(s.WCNomBeamAngleAcrossDeg)
	w.f32(s.MeanAbsCoeffDBPerKm)
	w.f32(s.Reflectivity1DB)
	w.f32(s.Reflectivity2DB)
	w.f32(s.ReceiverSensitivityDB)
	w.f32(s.SourceLevelAppliedDB)
	w.f32(s.BSCalibrationDB)
	w.f32(s.TVGDB)
	w.f32(s.BeamAngleReRxDeg)
	w.f32(s.BeamAngleCorrectionDeg)
	w.f32(s.TwoWayTravelTimeSec)
	w.f32(s.TwoWayTravelTimeCorrSec)
	w.f32(s.DeltaLatitudeDeg)
	w.f32(s.DeltaLongitudeDeg)
	w.f32(s.ZReRefPointM)
	w.f32(s.YReRefPointM)
	w.f32(s.XReRefPointM)
	w.f32(s.BeamIncAngleAdjDeg)
	w.u16(s.RealTimeCleanInfo)
	w.u16(s.SIStartRangeSamples)
	w.u16(s.SICentreSample)
	w.u16(s.SINumSamples)
}

func soundingSamples(s *Sounding) int {
	return int(s.SINumSamples)
}

func decodeBathymetry(r *reader, _ Header) (Body, error) {
	b := &Bathymetry{}
	if err := decodeBlock(r, partitionSize, &b.Partition); err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	if err := decodeFramed(r, &b.Common); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	if err := decodeFramed(r, &b.PingInfo); err != nil {
		return nil, fmt.Errorf("ping info: %w", err)
	}
	var err error
	b.Sectors, err = decodeArray[TxSector](r, int(b.PingInfo.NumTxSectors), int(b.PingInfo.NumBytesPerTxSector))
	if err != nil {
		return nil, fmt.Errorf("tx sectors: %w", err)
	}
	if err := decodeFramed(r, &b.RxInfo); err != nil {
		return nil, fmt.Errorf("rx info: %w", err)
	}
	b.ExtraDetClasses, err = decodeArray[ExtraDetClass](r, int(b.RxInfo.NumExtraDetectionClasses), int(b.RxInfo.NumBytesPerClass))
	if err != nil {
		return nil, fmt.Errorf("extra detection classes: %w", err)
	}
	numSoundings := int(b.RxInfo.NumSoundingsMaxMain) + int(b.RxInfo.NumExtraDetections)
	var total int
	b.Soundings, total, err = decodeArrayTotal[Sounding](r, numSoundings, int(b.RxInfo.NumBytesPerSounding), soundingSamples)
	if err != nil {
		return nil, fmt.Errorf("soundings: %w", err)
	}
	b.SeabedImageSamples = r.i16s(total)
	if r.err != nil {
		return nil, fmt.Errorf("seabed image samples: %w", r.err)
	}
	return b, nil
}

// normalized returns a copy whose counts match its slices. The main/extra
// sounding split is kept when it still fits the sounding slice.
func (b *Bathymetry) normalized() (*Bathymetry, error) {
	out := *b
	out.PingInfo.NumTxSectors = uint16(len(b.Sectors))
	out.PingInfo.NumBytesPerTxSector = uint16(declaredOr(b.PingInfo.NumBytesPerTxSector, txSectorSize))
	out.RxInfo.NumExtraDetectionClasses = uint16(len(b.ExtraDetClasses))
	out.RxInfo.NumBytesPerClass = uint16(declaredOr(b.RxInfo.NumBytesPerClass, extraDetClassSize))
	out.RxInfo.NumBytesPerSounding = uint16(declaredOr(b.RxInfo.NumBytesPerSounding, soundingSize))
	n := len(b.Soundings)
	if int(b.RxInfo.NumSoundingsMaxMain) <= n {
		out.RxInfo.NumExtraDetections = uint16(n - int(b.RxInfo.NumSoundingsMaxMain))
	} else {
		out.RxInfo.NumSoundingsMaxMain = uint16(n)
		out.RxInfo.NumExtraDetections = 0
	}
	total := sumOf(b.Soundings, soundingSamples)
	if total != len(b.SeabedImageSamples) {
		return nil, fmt.Errorf("%w: soundings account for %d seabed image samples, have %d", ErrMalformed, total, len(b.SeabedImageSamples))
	}
	// SINumSamples is the last field of a sounding.
	if total > 0 && int(out.RxInfo.NumBytesPerSounding) < soundingSize {
		return nil, fmt.Errorf("%w: soundings of %d bytes cannot carry seabed image sample counts", ErrMalformed, out.RxInfo.NumBytesPerSounding)
	}
	// A shortened block must still carry the count fields of non-empty arrays.
	if len(out.Sectors) > 0 && declaredOr(out.PingInfo.NumBytesInfoData, pingInfoSize) < 96 {
		return nil, fmt.Errorf("%w: ping info of %d bytes cannot describe tx sectors", ErrMalformed, out.PingInfo.NumBytesInfoData)
	}
	rxLen := declaredOr(out.RxInfo.NumBytesRxInfo, rxInfoSize)
	switch {
	case n > 0 && rxLen < 8,
		out.RxInfo.NumExtraDetections > 0 && rxLen < 28,
		len(out.ExtraDetClasses) > 0 && rxLen < rxInfoSize:
		return nil, fmt.Errorf("%w: rx info of %d bytes cannot describe its arrays", ErrMalformed, rxLen)
	}
	return &out, nil
}

func encodeBathymetry(w *writer, b *Bathymetry) error {
	n, err := b.normalized()
	if err != nil {
		return err
	}
	encodeBlock(w, partitionSize, &n.Partition)
	encodeFramed(w, declaredOr(n.Common.NumBytesCmnPart, commonBodySize), &n.Common)
	encodeFramed(w, declaredOr(n.PingInfo.NumBytesInfoData, pingInfoSize), &n.PingInfo)
	encodeArray(w, n.Sectors, int(n.PingInfo.NumBytesPerTxSector))
	encodeFramed(w, declaredOr(n.RxInfo.NumBytesRxInfo, rxInfoSize), &n.RxInfo)
	encodeArray(w, n.ExtraDetClasses, int(n.RxInfo.NumBytesPerClass))
	encodeArray(w, n.Soundings, int(n.RxInfo.NumBytesPerSounding))
	w.i16s(n.SeabedImageSamples)
	return nil
}
