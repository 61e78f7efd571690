package kmall

import "fmt"

// PositionData is the fixed part shared by #SPO and #CPO.
type PositionData struct {
	TimeFromSensorSec     uint32
	TimeFromSensorNanosec uint32
	PosFixQualityM        float32
	CorrectedLatDeg       float64
	CorrectedLongDeg      float64
	SpeedOverGroundMPerS  float32
	CourseOverGroundDeg   float32
	EllipsoidHeightReRefM float32
}

const positionDataSize = 40

func (p *PositionData) decodeFields(r *reader) {
	p.TimeFromSensorSec = r.u32()
	p.TimeFromSensorNanosec = r.u32()
	p.PosFixQualityM = r.f32()
	p.CorrectedLatDeg = r.latitude("correctedLat")
	p.CorrectedLongDeg = r.longitude("correctedLong")
	p.SpeedOverGroundMPerS = r.f32()
	p.CourseOverGroundDeg = r.f32()
	p.EllipsoidHeightReRefM = r.f32()
}

func (p *PositionData) encodeFields(w *writer) {
	w.u32(p.TimeFromSensorSec)
	w.u32(p.TimeFromSensorNanosec)
	w.f32(p.PosFixQualityM)
	w.geoField(p.CorrectedLatDeg)
	w.geoField(p.CorrectedLongDeg)
	w.f32(p.SpeedOverGroundMPerS)
	w.f32(p.CourseOverGroundDeg)
	w.f32(p.EllipsoidHeightReRefM)
}

// Position is the #SPO position fix datagram.
type Position struct {
	Common SensorCommon
	Data   PositionData
	// SensorData is the raw sentence received from the position sensor.
	SensorData string
}

func (*Position) Tag() Tag { return TagSPO }
func (*Position) isBody()  {}

// CompatPosition is the #CPO backward-compatibility position datagram.
type CompatPosition struct {
	Common     SensorCommon
	Data       PositionData
	SensorData string
}

func (*CompatPosition) Tag() Tag { return TagCPO }
func (*CompatPosition) isBody()  {}

func decodePositionParts(r *reader, c *SensorCommon, d *PositionData) (string, error) {
	if err := decodeFramed(r, c); err != nil {
		return "", fmt.Errorf("common: %w", err)
	}
	if err := decodeBlock(r, positionDataSize, d); err != nil {
		return "", fmt.Errorf("position data: %w", err)
	}
	return r.text(), r.err
}

func decodePosition(r *reader, _ Header) (Body, error) {
	p := &Position{}
	var err error
	p.SensorData, err = decodePositionParts(r, &p.Common, &p.Data)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeCompatPosition(r *reader, _ Header) (Body, error) {
	p := &CompatPosition{}
	var err error
	p.SensorData, err = decodePositionParts(r, &p.Common, &p.Data)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func encodePositionParts(w *writer, c *SensorCommon, d *PositionData, text string) {
	encodeFramed(w, declaredOr(c.NumBytesCmnPart, sensorCommonSize), c)
	encodeBlock(w, positionDataSize, d)
	w.text(text)
}

// Depth is the #SDE depth sensor datagram.
type Depth struct {
	Common     SensorCommon
	DepthUsedM float32
	DepthRawM  float32
	Offset     float32
	Scale      float32
	LatDeg     float64
	LongDeg    float64
	SensorData string
}

func (*Depth) Tag() Tag { return TagSDE }
func (*Depth) isBody()  {}

const depthDataSize = 32

type depthData Depth

func (d *depthData) decodeFields(r *reader) {
	d.DepthUsedM = r.f32()
	d.DepthRawM = r.f32()
	d.Offset = r.f32()
	d.Scale = r.f32()
	d.LatDeg = r.latitude("lat")
	d.LongDeg = r.longitude("long")
}

func (d *depthData) encodeFields(w *writer) {
	w.f32(d.DepthUsedM)
	w.f32(d.DepthRawM)
	w.f32(d.Offset)
	w.f32(d.Scale)
	w.geoField(d.LatDeg)
	w.geoField(d.LongDeg)
}

func decodeDepth(r *reader, _ Header) (Body, error) {
	d := &Depth{}
	if err := decodeFramed(r, &d.Common); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	if err := decodeBlock(r, depthDataSize, (*depthData)(d)); err != nil {
		return nil, fmt.Errorf("depth data: %w", err)
	}
	d.SensorData = r.text()
	return d, r.err
}

// Height is the #SHI height sensor datagram.
type Height struct {
	Common     SensorCommon
	SensorType uint16
	HeightM    float32
	SensorData string
}

func (*Height) Tag() Tag { return TagSHI }
func (*Height) isBody()  {}

const heightDataSize = 6

type heightData Height

func (h *heightData) decodeFields(r *reader) {
	h.SensorType = r.u16()
	h.HeightM = r.f32()
}

func (h *heightData) encodeFields(w *writer) {
	w.u16(h.SensorType)
	w.f32(h.HeightM)
}

func decodeHeight(r *reader, _ Header) (Body, error) {
	h := &Height{}
	if err := decodeFramed(r, &h.Common); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	if err := decodeBlock(r, heightDataSize, (*heightData)(h)); err != nil {
		return nil, fmt.Errorf("height data: %w", err)
	}
	h.SensorData = r.text()
	return h, r.err
}

// Clock is the #SCL clock datagram.
type Clock struct {
	Common             SensorCommon
	OffsetSec          float32
	ClockDevPUMicrosec int32
	SensorData         string
}

func (*Clock) Tag() Tag { return TagSCL }
func (*Clock) isBody()  {}

const clockDataSize = 8

type clockData Clock

func (c *clockData) decodeFields(r *reader) {
	c.OffsetSec = r.f32()
	c.ClockDevPUMicrosec = r.i32()
}

func (c *clockData) encodeFields(w *writer) {
	w.f32(c.OffsetSec)
	w.i32(c.ClockDevPUMicrosec)
}

func decodeClock(r *reader, _ Header) (Body, error) {
	c := &Clock{}
	if err := decodeFramed(r, &c.Common); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	if err := decodeBlock(r, clockDataSize, (*clockData)(c)); err != nil {
		return nil, fmt.Errorf("clock data: %w", err)
	}
	c.SensorData = r.text()
	return c, r.err
}

// CompatHeave is the #CHE backward-compatibility heave datagram.
type CompatHeave struct {
	Common CommonBody
	HeaveM float32
}

func (*CompatHeave) Tag() Tag { return TagCHE }
func (*CompatHeave) isBody()  {}

func decodeCompatHeave(r *reader, _ Header) (Body, error) {
	h := &CompatHeave{}
	if err := decodeFramed(r, &h.Common); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	h.HeaveM = r.f32()
	return h, r.err
}

// Attitude is the #SKM KM binary attitude and velocity datagram.
type Attitude struct {
	Info    SKMInfo
	Samples []SKMSample
}

func (*Attitude) Tag() Tag { return TagSKM }
func (*Attitude) isBody()  {}

type SKMInfo struct {
	NumBytesInfoPart   uint16
	SensorSystem       uint8
	SensorStatus       uint8
	SensorInputFormat  uint16
	NumSamplesArray    uint16
	NumBytesPerSample  uint16
	SensorDataContents uint16
}

const skmInfoSize = 12

func (i *SKMInfo) decodeFields(r *reader) {
	i.NumBytesInfoPart = r.u16()
	i.SensorSystem = r.u8()
	i.SensorStatus = r.u8()
	i.SensorInputFormat = r.u16()
	i.NumSamplesArray = r.u16()
	i.NumBytesPerSample = r.u16()
	i.SensorDataContents = r.u16()
}

func (i *SKMInfo) encodeFields(w *writer) {
	w.u16(i.NumBytesInfoPart)
	w.u8(i.SensorSystem)
	w.u8(i.SensorStatus)
	w.u16(i.SensorInputFormat)
	w.u16(i.NumSamplesArray)
	w.u16(i.NumBytesPerSample)
	w.u16(i.SensorDataContents)
}

// SKMSample is one KM binary sample followed by its delayed heave.
type SKMSample struct {
	DgmType                 string
	NumBytesDgm             uint16
	DgmVersion              uint16
	TimeSec                 uint32
	TimeNanosec             uint32
	Status                  uint32
	LatitudeDeg             float64
	LongitudeDeg            float64
	EllipsoidHeightM        float32
	RollDeg                 float32
	PitchDeg                float32
	HeadingDeg              float32
	HeaveM                  float32
	RollRate                float32
	PitchRate               float32
	YawRate                 float32
	VelNorth                float32
	VelEast                 float32
	VelDown                 float32
	LatitudeErrorM          float32
	LongitudeErrorM         float32
	EllipsoidHeightErrorM   float32
	RollErrorDeg            float32
	PitchErrorDeg           float32
	HeadingErrorDeg         float32
	HeaveErrorM             float32
	NorthAcceleration       float32
	EastAcceleration        float32
	DownAcceleration        float32
	DelayedHeaveTimeSec     uint32
	DelayedHeaveTimeNanosec uint32
	DelayedHeaveM           float32
}

const skmSampleSize = 132

func (s *SKMSample) decodeFields(r *reader) {
	s.DgmType = r.fixedString(4)
	s.NumBytesDgm = r.u16()
	s.DgmVersion = r.u16()
	s.TimeSec = r.u32()
	s.TimeNanosec = r.u32()
	s.Status = r.u32()
	s.LatitudeDeg = r.latitude("kmb.latitude")
	s.LongitudeDeg = r.longitude("kmb.longitude")
	s.EllipsoidHeightM = r.f32()
	s.RollDeg = r.f32()
	s.PitchDeg = r.f32()
	s.HeadingDeg = r.f32()
	s.HeaveM = r.f32()
	s.RollRate = r.f32()
	s.PitchRate = r.f32()
	s.YawRate = r.f32()
	s.VelNorth = r.f32()
	s.VelEast = r.f32()
	s.VelDown = r.f32()
	s.LatitudeErrorM = r.f32()
	s.LongitudeErrorM = r.f32()
	s.EllipsoidHeightErrorM = r.f32()
	s.RollErrorDeg = r.f32()
	s.PitchErrorDeg = r.f32()
	s.HeadingErrorDeg = r.f32()
	s.HeaveErrorM = r.f32()
	s.NorthAcceleration = r.f32()
	s.EastAcceleration = r.f32()
	s.DownAcceleration = r.f32()
	s.DelayedHeaveTimeSec = r.u32()
	s.DelayedHeaveTimeNanosec = r.u32()
	s.DelayedHeaveM = r.f32()
}

func (s *SKMSample) encodeFields(w *writer) {
	w.fixedString(s.DgmType, 4)
	w.u16(s.NumBytesDgm)
	w.u16(s.DgmVersion)
	w.u32(s.TimeSec)
	w.u32(s.TimeNanosec)
	w.u32(s.Status)
	w.geoField(s.LatitudeDeg)
	w.geoField(s.LongitudeDeg)
	w.f32(s.EllipsoidHeightM)
	w.f32(s.RollDeg)
	w.f32(s.PitchDeg)
	w.f32(s.HeadingDeg)
	w.f32(s.HeaveM)
	w.f32(s.RollRate)
	w.f32(s.PitchRate)
	w.f32(s.YawRate)
	w.f32(s.VelNorth)
	w.f32(s.VelEast)
	w.f32(s.VelDown)
	w.f32(s.LatitudeErrorM)
	w.f32(s.LongitudeErrorM)
	w.f32(s.EllipsoidHeightErrorM)
	w.f32(s.RollErrorDeg)
	w.f32(s.PitchErrorDeg)
	w.f32(s.HeadingErrorDeg)
	w.f32(s.HeaveErrorM)
	w.f32(s.NorthAcceleration)
	w.f32(s.EastAcceleration)
	w.f32(s.DownAcceleration)
	w.u32(s.DelayedHeaveTimeSec)
	w.u32(s.DelayedHeaveTimeNanosec)
	w.f32(s.DelayedHeaveM)
}

func decodeAttitude(r *reader, _ Header) (Body, error) {
	a := &Attitude{}
	if err := decodeFramed(r, &a.Info); err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}
	var err error
	a.Samples, err = decodeArray[SKMSample](r, int(a.Info.NumSamplesArray), int(a.Info.NumBytesPerSample))
	if err != nil {
		return nil, fmt.Errorf("samples: %w", err)
	}
	return a, nil
}

func encodeAttitude(w *writer, a *Attitude) error {
	info := a.Info
	info.NumSamplesArray = uint16(len(a.Samples))
	info.NumBytesPerSample = uint16(declaredOr(info.NumBytesPerSample, skmSampleSize))
	declared := declaredOr(info.NumBytesInfoPart, skmInfoSize)
	if len(a.Samples) > 0 && declared < 8 {
		return fmt.Errorf("%w: info of %d bytes cannot describe samples", ErrMalformed, declared)
	}
	encodeFramed(w, declared, &info)
	encodeArray(w, a.Samples, int(info.NumBytesPerSample))
	return nil
}

// SVT is the #SVT sound velocity at transducer datagram.
type SVT struct {
	Info    SVTInfo
	Samples []SVTSample
}

func (*SVT) Tag() Tag { return TagSVT }
func (*SVT) isBody()  {}

type SVTInfo struct {
	NumBytesInfoPart    uint16
	SensorStatus        uint16
	SensorInputFormat   uint16
	NumSamplesArray     uint16
	NumBytesPerSample   uint16
	SensorDataContents  uint16
	FilterTimeSec       float32
	SoundVelocityOffset float32
}

const svtInfoSize = 20

func (i *SVTInfo) decodeFields(r *reader) {
	i.NumBytesInfoPart = r.u16()
	i.SensorStatus = r.u16()
	i.SensorInputFormat = r.u16()
	i.NumSamplesArray = r.u16()
	i.NumBytesPerSample = r.u16()
	i.SensorDataContents = r.u16()
	i.FilterTimeSec = r.f32()
	i.SoundVelocityOffset = r.f32()
}

func (i *SVTInfo) encodeFields(w *writer) {
	w.u16(i.NumBytesInfoPart)
	w.u16(i.SensorStatus)
	w.u16(i.SensorInputFormat)
	w.u16(i.NumSamplesArray)
	w.u16(i.NumBytesPerSample)
	w.u16(i.SensorDataContents)
	w.f32(i.FilterTimeSec)
	w.f32(i.SoundVelocityOffset)
}

type SVTSample struct {
	TimeSec            uint32
	TimeNanosec        uint32
	SoundVelocityMPerS float32
	TemperatureC       float32
	PressurePa         float32
	Salinity           float32
}

const svtSampleSize = 24

func (s *SVTSample) decodeFields(r *reader) {
	s.TimeSec = r.u32()
	s.TimeNanosec = r.u32()
	s.SoundVelocityMPerS = r.f32()
	s.TemperatureC = r.f32()
	s.PressurePa = r.f32()
	s.Salinity = r.f32()
}

func (s *SVTSample) encodeFields(w *writer) {
	w.u32(s.TimeSec)
	w.u32(s.TimeNanosec)
	w.f32(s.SoundVelocityMPerS)
	w.f32(s.TemperatureC)
	w.f32(s.PressurePa)
	w.f32(s.Salinity)
}

func decodeSVT(r *reader, _ Header) (Body, error) {
	s := &SVT{}
	if err := decodeFramed(r, &s.Info); err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}
	var err error
	s.Samples, err = decodeArray[SVTSample](r, int(s.Info.NumSamplesArray), int(s.Info.NumBytesPerSample))
	if err != nil {
		return nil, fmt.Errorf("samples: %w", err)
	}
	return s, nil
}

func encodeSVT(w *writer, s *SVT) error {
	info := s.Info
	info.NumSamplesArray = uint16(len(s.Samples))
	info.NumBytesPerSample = uint16(declaredOr(info.NumBytesPerSample, svtSampleSize))
	declared := declaredOr(info.NumBytesInfoPart, svtInfoSize)
	if len(s.Samples) > 0 && declared < 10 {
		return fmt.Errorf("%w: info of %d bytes cannot describe samples", ErrMalformed, declared)
	}
	encodeFramed(w, declared, &info)
	encodeArray(w, s.Samples, int(info.NumBytesPerSample))
	return nil
}

// SVP is the #SVP sound velocity profile datagram.
type SVP struct {
	NumBytesCmnPart uint16
	NumSamples      uint16
	SensorFormat    string
	TimeSec         uint32
	LatitudeDeg     float64
	LongitudeDeg    float64
	Samples         []SVPSample
}

func (*SVP) Tag() Tag { return TagSVP }
func (*SVP) isBody()  {}

const svpCommonSize = 28

type svpCommon SVP

func (c *svpCommon) decodeFields(r *reader) {
	c.NumBytesCmnPart = r.u16()
	c.NumSamples = r.u16()
	c.SensorFormat = r.fixedString(4)
	c.TimeSec = r.u32()
	c.LatitudeDeg = r.latitude("latitude")
	c.LongitudeDeg = r.longitude("longitude")
}

func (c *svpCommon) encodeFields(w *writer) {
	w.u16(c.NumBytesCmnPart)
	w.u16(c.NumSamples)
	w.fixedString(c.SensorFormat, 4)
	w.u32(c.TimeSec)
	w.geoField(c.LatitudeDeg)
	w.geoField(c.LongitudeDeg)
}

type SVPSample struct {
	DepthM             float32
	SoundVelocityMPerS float32
	Padding            uint32
	TemperatureC       float32
	Salinity           float32
}

const svpSampleSize = 20

func (s *SVPSample) decodeFields(r *reader) {
	s.DepthM = r.f32()
	s.SoundVelocityMPerS = r.f32()
	s.Padding = r.u32()
	s.TemperatureC = r.f32()
	s.Salinity = r.f32()
}

func (s *SVPSample) encodeFields(w *writer) {
	w.f32(s.DepthM)
	w.f32(s.SoundVelocityMPerS)
	w.u32(s.Padding)
	w.f32(s.TemperatureC)
	w.f32(s.Salinity)
}

func decodeSVP(r *reader, _ Header) (Body, error) {
	s := &SVP{}
	if err := decodeFramed(r, (*svpCommon)(s)); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	var err error
	s.Samples, err = decodeArray[SVPSample](r, int(s.NumSamples), svpSampleSize)
	if err != nil {
		return nil, fmt.Errorf("samples: %w", err)
	}
	return s, nil
}

func encodeSVP(w *writer, s *SVP) error {
	c := *s
	c.NumSamples = uint16(len(s.Samples))
	declared := declaredOr(c.NumBytesCmnPart, svpCommonSize)
	if len(s.Samples) > 0 && declared < 4 {
		return fmt.Errorf("%w: common part of %d bytes cannot describe samples", ErrMalformed, declared)
	}
	encodeFramed(w, declared, (*svpCommon)(&c))
	encodeArray(w, s.Samples, svpSampleSize)
	return nil
}
