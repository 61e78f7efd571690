package kmall

import "fmt"

// CalibrationFile is the #FCF datagram carrying a backscatter calibration
// file verbatim.
type CalibrationFile struct {
	Partition       Partition
	NumBytesCmnPart uint16
	FileStatus      int8
	Padding         uint8
	NumBytesFile    uint32
	FileName        string
	Contents        []byte
}

func (*CalibrationFile) Tag() Tag { return TagFCF }
func (*CalibrationFile) isBody()  {}

const (
	fcfCommonSize   = 72
	fcfFileNameSize = 64
)

type fcfCommon CalibrationFile

func (c *fcfCommon) decodeFields(r *reader) {
	c.NumBytesCmnPart = r.u16()
	c.FileStatus = r.i8()
	c.Padding = r.u8()
	c.NumBytesFile = r.u32()
	c.FileName = r.fixedString(fcfFileNameSize)
}

func (c *fcfCommon) encodeFields(w *writer) {
	w.u16(c.NumBytesCmnPart)
	w.i8(c.FileStatus)
	w.u8(c.Padding)
	w.u32(c.NumBytesFile)
	w.fixedString(c.FileName, fcfFileNameSize)
}

func decodeCalibrationFile(r *reader, _ Header) (Body, error) {
	f := &CalibrationFile{}
	if err := decodeBlock(r, partitionSize, &f.Partition); err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	if err := decodeFramed(r, (*fcfCommon)(f)); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	if int64(f.NumBytesFile) > int64(r.remaining()) {
		r.err = fmt.Errorf("%w: file of %d bytes, have %d", ErrTruncated, f.NumBytesFile, r.remaining())
		return nil, r.err
	}
	f.Contents = r.raw(int(f.NumBytesFile))
	return f, r.err
}

func encodeCalibrationFile(w *writer, f *CalibrationFile) error {
	c := *f
	c.NumBytesFile = uint32(len(f.Contents))
	declared := declaredOr(c.NumBytesCmnPart, fcfCommonSize)
	if len(f.Contents) > 0 && declared < 8 {
		return fmt.Errorf("%w: common part of %d bytes cannot carry the file size", ErrMalformed, declared)
	}
	encodeBlock(w, partitionSize, &c.Partition)
	encodeFramed(w, declared, (*fcfCommon)(&c))
	w.bytes(f.Contents)
	return nil
}
