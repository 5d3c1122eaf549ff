package xsq

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cartomix/twinklr/internal/curves"
)

// ValueCurve is the DMX value-curve attached to one effect channel (§4.5).
// Exactly one of the native or custom forms is meaningful, selected by
// IsCustom, mirroring curves.Curve's own tagged union.
type ValueCurve struct {
	Channel int

	IsCustom bool

	NativeType     curves.NativeKind
	P1, P2, P3, P4 float64

	Points []curves.CurvePoint // sorted by T ascending, used when IsCustom

	Min, Max float64 // DMX range, normally 0..255
}

// ensureAnchors adds (0, first.V) / (1, last.V) points if missing, per
// §4.5's "anchor points at t=0.00 and t=1.00 are added if missing".
func ensureAnchors(points []curves.CurvePoint) []curves.CurvePoint {
	if len(points) == 0 {
		return points
	}
	out := points
	if out[0].T > 0 {
		out = append([]curves.CurvePoint{{T: 0, V: out[0].V}}, out...)
	}
	if out[len(out)-1].T < 1 {
		out = append(out, curves.CurvePoint{T: 1, V: out[len(out)-1].V})
	}
	return out
}

// Encode renders the value-curve string per §4.5's Native/Custom format.
func (vc ValueCurve) Encode() string {
	id := fmt.Sprintf("ID_VALUECURVE_DMX%d", vc.Channel)
	if !vc.IsCustom {
		return fmt.Sprintf(
			"Active=TRUE|Id=%s|Type=%s|Min=%s|Max=%s|RV=FALSE|P1=%s|P2=%s|P3=%s|P4=%s|",
			id, vc.NativeType.String(),
			formatTruncated(vc.Min, 2), formatTruncated(vc.Max, 2),
			formatTruncated(vc.P1, 2), formatTruncated(vc.P2, 2),
			formatTruncated(vc.P3, 2), formatTruncated(vc.P4, 2),
		)
	}

	points := ensureAnchors(vc.Points)
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = FormatTime(p.T) + ":" + FormatValue(p.V)
	}
	values := strings.Join(parts, ";")

	return fmt.Sprintf(
		"Active=TRUE|Id=%s|Type=Custom|Min=%s|Max=%s|RV=FALSE|Values=%s|",
		id, formatTruncated(vc.Min, 2), formatTruncated(vc.Max, 2), values,
	)
}

// ParseValueCurve is the strict inverse of Encode.
func ParseValueCurve(s string) (ValueCurve, error) {
	fields := strings.Split(strings.Trim(s, "|"), "|")
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			continue
		}
		m[kv[0]] = kv[1]
	}

	id, ok := m["Id"]
	if !ok {
		return ValueCurve{}, fmt.Errorf("xsq: value-curve string missing Id")
	}
	channel, err := parseChannelFromID(id)
	if err != nil {
		return ValueCurve{}, err
	}

	vc := ValueCurve{Channel: channel}
	if min, ok := m["Min"]; ok {
		vc.Min, _ = strconv.ParseFloat(min, 64)
	}
	if max, ok := m["Max"]; ok {
		vc.Max, _ = strconv.ParseFloat(max, 64)
	}

	typ, ok := m["Type"]
	if !ok {
		return ValueCurve{}, fmt.Errorf("xsq: value-curve string missing Type")
	}

	if typ == "Custom" {
		vc.IsCustom = true
		raw, ok := m["Values"]
		if !ok {
			return ValueCurve{}, fmt.Errorf("xsq: custom value-curve missing Values")
		}
		for _, pair := range strings.Split(raw, ";") {
			if pair == "" {
				continue
			}
			tv := strings.SplitN(pair, ":", 2)
			if len(tv) != 2 {
				return ValueCurve{}, fmt.Errorf("xsq: malformed value-curve point %q", pair)
			}
			t, err1 := strconv.ParseFloat(tv[0], 64)
			v, err2 := strconv.ParseFloat(tv[1], 64)
			if err1 != nil || err2 != nil {
				return ValueCurve{}, fmt.Errorf("xsq: malformed value-curve point %q", pair)
			}
			vc.Points = append(vc.Points, curves.CurvePoint{T: t, V: v})
		}
		return vc, nil
	}

	vc.NativeType = parseNativeKind(typ)
	vc.P1, _ = strconv.ParseFloat(m["P1"], 64)
	vc.P2, _ = strconv.ParseFloat(m["P2"], 64)
	vc.P3, _ = strconv.ParseFloat(m["P3"], 64)
	vc.P4, _ = strconv.ParseFloat(m["P4"], 64)
	return vc, nil
}

func parseChannelFromID(id string) (int, error) {
	const prefix = "ID_VALUECURVE_DMX"
	if !strings.HasPrefix(id, prefix) {
		return 0, fmt.Errorf("xsq: unrecognized value-curve id %q", id)
	}
	return strconv.Atoi(strings.TrimPrefix(id, prefix))
}

var nativeKindNames = map[string]curves.NativeKind{
	"Linear": curves.Linear, "Hold": curves.Hold, "Sine": curves.Sine,
	"Cosine": curves.Cosine, "Triangle": curves.Triangle, "Pulse": curves.Pulse,
	"Square": curves.Square, "SmoothStep": curves.SmoothStep, "SmootherStep": curves.SmootherStep,
	"SCurve": curves.SCurve, "Ramp": curves.Ramp, "Parabolic": curves.Parabolic,
	"SawTooth": curves.SawTooth, "AbsSine": curves.AbsSine,
	"Exponential": curves.Exponential, "Logarithmic": curves.Logarithmic,
}

func parseNativeKind(name string) curves.NativeKind {
	if k, ok := nativeKindNames[name]; ok {
		return k
	}
	return curves.Linear
}
