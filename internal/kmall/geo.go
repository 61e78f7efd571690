package kmall

import "math"

// Unavailable geo values as written by the echosounder when no position fix
// is present.
const (
	UnavailableLatitude  = 200.0
	UnavailableLongitude = 200.0
)

type geoKind uint8

const (
	latitudeKind geoKind = iota
	longitudeKind
)

// swapHalves exchanges the upper and lower 32-bit words of a 64-bit pattern.
// Geo doubles are stored with their words transposed relative to the
// little-endian layout every other field uses. The swap is its own inverse.
func swapHalves(v uint64) uint64 {
	return v<<32 | v>>32
}

// decodeGeo interprets a raw on-disk geo pattern.
func decodeGeo(raw uint64) float64 {
	return math.Float64frombits(swapHalves(raw))
}

// encodeGeo produces the on-disk pattern for a geo value.
func encodeGeo(v float64) uint64 {
	return swapHalves(math.Float64bits(v))
}

// geoPlausible reports whether v is a valid coordinate of kind or the
// unavailable sentinel.
func geoPlausible(kind geoKind, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	switch kind {
	case latitudeKind:
		return v == UnavailableLatitude || (v >= -90 && v <= 90)
	default:
		return v == UnavailableLongitude || (v >= -180 && v <= 180)
	}
}

// geoState carries the half-swap setting into field codecs and collects
// anomalies found while decoding a single datagram. A nil state corrects and
// collects nothing.
type geoState struct {
	disabled  bool
	anomalies []GeoAnomaly
}

func (g *geoState) decode(raw uint64, kind geoKind, field string) float64 {
	if g != nil && g.disabled {
		return math.Float64frombits(raw)
	}
	v := decodeGeo(raw)
	if g != nil && !geoPlausible(kind, v) {
		g.anomalies = append(g.anomalies, GeoAnomaly{Field: field, Value: v, Raw: raw})
	}
	return v
}

func (g *geoState) encode(v float64) uint64 {
	if g != nil && g.disabled {
		return math.Float64bits(v)
	}
	return encodeGeo(v)
}
