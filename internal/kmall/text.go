package kmall

import "fmt"

// Parameters is the #IIP installation or #IOP runtime parameters datagram.
// Type selects which of the two the record is.
type Parameters struct {
	Type            Tag
	NumBytesCmnPart uint16
	Info            uint16
	Status          uint16
	Text            string
}

func (p *Parameters) Tag() Tag { return p.Type }
func (*Parameters) isBody()    {}

const parametersCommonSize = 6

type parametersCommon Parameters

func (c *parametersCommon) decodeFields(r *reader) {
	c.NumBytesCmnPart = r.u16()
	c.Info = r.u16()
	c.Status = r.u16()
}

func (c *parametersCommon) encodeFields(w *writer) {
	w.u16(c.NumBytesCmnPart)
	w.u16(c.Info)
	w.u16(c.Status)
}

func decodeParameters(r *reader, hdr Header) (Body, error) {
	p := &Parameters{Type: hdr.Tag}
	if err := decodeFramed(r, (*parametersCommon)(p)); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	p.Text = r.text()
	return p, r.err
}

func encodeParameters(w *writer, p *Parameters) {
	encodeFramed(w, declaredOr(p.NumBytesCmnPart, parametersCommonSize), (*parametersCommon)(p))
	w.text(p.Text)
}

// SelfTest is a built-in self-test datagram: #IBE error report, #IBR reply
// or #IBS short reply.
type SelfTest struct {
	Type            Tag
	NumBytesCmnPart uint16
	Info            uint8
	Style           uint8
	Number          uint8
	Status          int8
	Text            string
}

func (s *SelfTest) Tag() Tag { return s.Type }
func (*SelfTest) isBody()    {}

const selfTestCommonSize = 6

type selfTestCommon SelfTest

func (c *selfTestCommon) decodeFields(r *reader) {
	c.NumBytesCmnPart = r.u16()
	c.Info = r.u8()
	c.Style = r.u8()
	c.Number = r.u8()
	c.Status = r.i8()
}

func (c *selfTestCommon) encodeFields(w *writer) {
	w.u16(c.NumBytesCmnPart)
	w.u8(c.Info)
	w.u8(c.Style)
	w.u8(c.Number)
	w.i8(c.Status)
}

func decodeSelfTest(r *reader, hdr Header) (Body, error) {
	s := &SelfTest{Type: hdr.Tag}
	if err := decodeFramed(r, (*selfTestCommon)(s)); err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	s.Text = r.text()
	return s, r.err
}

func encodeSelfTest(w *writer, s *SelfTest) {
	encodeFramed(w, declaredOr(s.NumBytesCmnPart, selfTestCommonSize), (*selfTestCommon)(s))
	w.text(s.Text)
}
