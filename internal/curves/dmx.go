package curves

// MappingMode selects how design-space [0,1] values convert to DMX space.
type MappingMode int

const (
	// Absolute (dimmer-style): v_dmx = clamp(clampMin + v*(clampMax-clampMin), 0, 255).
	Absolute MappingMode = iota
	// OffsetCentered (movement-style): v_dmx = clamp(base + amplitude*(v-0.5), clampMin, clampMax).
	OffsetCentered
)

// TuneNative adjusts a native curve's amplitude/center (for sine-family) or
// endpoints (for ramp-family) so the resulting DMX range lies inside
// [minLimit, maxLimit], both expressed in the same normalized [0,1]
// design-space the curve samples in (the caller converts fixture DMX limits
// to this space by dividing by 255 before calling).
//
// For sine-family curves with amplitude A and center C: if C-A < minLimit or
// C+A > maxLimit, recenter: C' = (minLimit+maxLimit)/2, A' = (maxLimit-minLimit)/2.
//
// For ramp-family curves, clamp the endpoints to the interval.
func TuneNative(spec NativeSpec, minLimit, maxLimit float64) NativeSpec {
	out := spec

	if spec.Kind.periodic() {
		center := spec.Center
		if center == 0 {
			center = 0.5
		}
		amp := out.Params[0]
		lo := center - 0.5*amp
		hi := center + 0.5*amp
		if lo < minLimit || hi > maxLimit {
			out.Center = (minLimit + maxLimit) / 2
			out.Params[0] = clamp01(maxLimit - minLimit)
		} else {
			out.Center = center
		}
		return out
	}

	if spec.Kind.rampFamily() {
		startV := clamp01(out.Params[0])
		endV := out.Params[1]
		if endV == 0 && startV == 0 {
			endV = 1
		}
		endV = clamp01(endV)
		out.Params[0] = clamp(startV, minLimit, maxLimit)
		out.Params[1] = clamp(endV, minLimit, maxLimit)
		return out
	}

	return out
}

// MapToDMX converts a design-space curve (v in [0,1]) to DMX-space, then
// re-normalizes v_dmx/255 for xLights output (xLights value-curves are
// themselves stored as [0,1] fractions of the 0-255 DMX range). inverted, if
// true, replaces each produced value x with 255-x at mapping time — and
// tuning against post-inversion limits is the caller's responsibility
// (handled by TuneNative being called with already-inverted clampMin/Max
// when the channel is inverted).
func MapToDMX(points []CurvePoint, mode MappingMode, baseDMX, amplitudeDMX, clampMin, clampMax float64, inverted bool) []CurvePoint {
	out := make([]CurvePoint, len(points))
	for i, p := range points {
		var vDMX float64
		switch mode {
		case Absolute:
			vDMX = clamp(clampMin+p.V*(clampMax-clampMin), 0, 255)
		case OffsetCentered:
			vDMX = clamp(baseDMX+amplitudeDMX*(p.V-0.5), clampMin, clampMax)
		}
		if inverted {
			vDMX = 255 - vDMX
		}
		out[i] = CurvePoint{T: p.T, V: vDMX / 255.0}
	}
	return out
}

// MapValueToDMX is the scalar form of MapToDMX, used for static channel
// values and for sampling a mapped curve at an arbitrary t.
func MapValueToDMX(v float64, mode MappingMode, baseDMX, amplitudeDMX, clampMin, clampMax float64, inverted bool) uint8 {
	var vDMX float64
	switch mode {
	case Absolute:
		vDMX = clamp(clampMin+v*(clampMax-clampMin), 0, 255)
	case OffsetCentered:
		vDMX = clamp(baseDMX+amplitudeDMX*(v-0.5), clampMin, clampMax)
	}
	if inverted {
		vDMX = 255 - vDMX
	}
	return uint8(clamp(vDMX, 0, 255))
}
