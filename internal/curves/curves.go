// Package curves implements C2: the curve engine. It generates normalized
// [0,1] sample sequences (sine, triangle, pulse, smoothstep, custom points…)
// and maps them to DMX integer ranges with per-channel clamps and
// inversions. The waveform synthesis style (sample-by-sample math.Sin /
// math.Exp loops) is grounded on the teacher's internal/fixtures/generator.go
// click-track and chord-pad renderers, generalized from PCM audio samples to
// normalized design-space curve points.
package curves

import (
	"fmt"
	"math"
)

// NativeKind enumerates the closed set of parametric curve kinds.
type NativeKind int

const (
	Linear NativeKind = iota
	Hold
	Sine
	Cosine
	Triangle
	Pulse
	Square
	SmoothStep
	SmootherStep
	SCurve
	Ramp
	Parabolic
	SawTooth
	AbsSine
	Exponential
	Logarithmic
)

func (k NativeKind) String() string {
	switch k {
	case Linear:
		return "Linear"
	case Hold:
		return "Hold"
	case Sine:
		return "Sine"
	case Cosine:
		return "Cosine"
	case Triangle:
		return "Triangle"
	case Pulse:
		return "Pulse"
	case Square:
		return "Square"
	case SmoothStep:
		return "SmoothStep"
	case SmootherStep:
		return "SmootherStep"
	case SCurve:
		return "SCurve"
	case Ramp:
		return "Ramp"
	case Parabolic:
		return "Parabolic"
	case SawTooth:
		return "SawTooth"
	case AbsSine:
		return "AbsSine"
	case Exponential:
		return "Exponential"
	case Logarithmic:
		return "Logarithmic"
	default:
		return "Unknown"
	}
}

// periodic reports whether kind is a cycle-repeating waveform (as opposed to
// a one-shot shape like Ramp or SmoothStep).
func (k NativeKind) periodic() bool {
	switch k {
	case Sine, Cosine, Triangle, Pulse, Square, SawTooth, AbsSine:
		return true
	default:
		return false
	}
}

func (k NativeKind) rampFamily() bool {
	switch k {
	case Ramp, Linear, SawTooth:
		return true
	default:
		return false
	}
}

// Params are the (up to 5) kind-specific parameters for a native curve.
// Meaning is kind-specific: for periodic kinds, P1=amplitude (0..1),
// P2=baseCycles, P3=phase (radians), P4=frequencyMultiplier, P5=duty (Pulse
// only). For Ramp/Linear, P1=startV, P2=endV. For Exponential/Logarithmic,
// P1=amplitude, P2=rate.
type Params [5]float64

// NativeSpec is a native curve's kind + parameters. Center is the design-
// space midline (normally 0.5) that periodic kinds oscillate around;
// TuneNative adjusts it (and the amplitude in Params[0]) to keep the
// resulting DMX range inside a fixture's limits. Non-periodic kinds ignore
// Center. Always set explicitly by construction — there is no implicit
// default baked into the zero value.
type NativeSpec struct {
	Kind   NativeKind
	Params Params
	Center float64
}

// CurvePoint is a single (t,v) sample, both in [0,1].
type CurvePoint struct {
	T float64
	V float64
}

// Error kinds per spec.md §4.2.
type ErrInvalidSampleCount struct{ N int }

func (e ErrInvalidSampleCount) Error() string {
	return fmt.Sprintf("invalid sample count %d: need at least 2", e.N)
}

type ErrInvalidCycles struct{ Cycles float64 }

func (e ErrInvalidCycles) Error() string {
	return fmt.Sprintf("invalid cycle count %g: must be > 0 for periodic kinds", e.Cycles)
}

type ErrUnknownCurveKind struct{ Kind NativeKind }

func (e ErrUnknownCurveKind) Error() string {
	return fmt.Sprintf("unknown curve kind %d", int(e.Kind))
}

// clamp01 clamps x to [0,1]. Out-of-range curve params (e.g. amplitude > 1)
// are preferences, not contracts, and are clamped silently rather than
// erroring.
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Generate produces nSamples points with t on a uniform grid in [0,1] and
// v in [0,1]. For periodic kinds, the effective cycle count is
// baseCycles * frequencyMultiplier (spec.params P2 * P4); amplitude scales
// around 0.5 so v(t) = 0.5 + 0.5*amp*wave(2*pi*c*t + phase).
func Generate(spec NativeSpec, nSamples int) ([]CurvePoint, error) {
	if nSamples < 2 {
		return nil, ErrInvalidSampleCount{N: nSamples}
	}

	k := spec.Kind
	p := spec.Params

	amp := clamp01(math.Abs(p[0]))
	baseCycles := p[1]
	phase := p[2]
	freqMult := p[3]
	duty := clamp01(p[4])

	if k.periodic() {
		if baseCycles == 0 {
			baseCycles = 1
		}
		if freqMult == 0 {
			freqMult = 1
		}
		cycles := baseCycles * freqMult
		if cycles <= 0 {
			return nil, ErrInvalidCycles{Cycles: cycles}
		}
	}

	center := spec.Center
	if center == 0 && k.periodic() {
		center = 0.5
	}

	points := make([]CurvePoint, nSamples)
	for i := 0; i < nSamples; i++ {
		t := float64(i) / float64(nSamples-1)
		v, err := evalNative(k, t, amp, baseCycles, freqMult, phase, duty, center, p)
		if err != nil {
			return nil, err
		}
		points[i] = CurvePoint{T: t, V: clamp01(v)}
	}
	return points, nil
}

func evalNative(k NativeKind, t, amp, baseCycles, freqMult, phase, duty, center float64, p Params) (float64, error) {
	cycles := baseCycles * freqMult
	angle := 2 * math.Pi * cycles * t
	wave := func(f func(float64) float64) float64 {
		return center + 0.5*amp*f(angle+phase)
	}

	switch k {
	case Linear, Ramp:
		startV, endV := p[0], p[1]
		if startV == 0 && endV == 0 {
			startV, endV = 0, 1
		}
		return startV + t*(endV-startV), nil

	case Hold:
		return p[0], nil

	case Sine:
		return wave(math.Sin), nil

	case Cosine:
		return wave(math.Cos), nil

	case Triangle:
		// Piecewise-linear triangle over the cycle fraction, normalized to
		// [-1,1] then mapped through the same 0.5+0.5*amp*f() envelope.
		frac := math.Mod((angle+phase)/(2*math.Pi), 1)
		if frac < 0 {
			frac++
		}
		var tri float64
		if frac < 0.5 {
			tri = 4*frac - 1
		} else {
			tri = 3 - 4*frac
		}
		return center + 0.5*amp*tri, nil

	case Pulse:
		frac := math.Mod((angle+phase)/(2*math.Pi), 1)
		if frac < 0 {
			frac++
		}
		if duty == 0 {
			duty = 0.5
		}
		if frac < duty {
			return center + 0.5*amp, nil
		}
		return center - 0.5*amp, nil

	case Square:
		return wave(func(x float64) float64 {
			if math.Sin(x) >= 0 {
				return 1
			}
			return -1
		}), nil

	case SmoothStep:
		return smoothstep(t), nil

	case SmootherStep:
		return smootherstep(t), nil

	case SCurve:
		// Logistic S-curve centered at t=0.5.
		k2 := 10.0
		return 1 / (1 + math.Exp(-k2*(t-0.5))), nil

	case Parabolic:
		return 1 - (1-2*t)*(1-2*t), nil

	case SawTooth:
		frac := math.Mod(cycles*t+phase/(2*math.Pi), 1)
		if frac < 0 {
			frac++
		}
		return center + 0.5*amp*(2*frac-1), nil

	case AbsSine:
		return center + 0.5*amp*math.Abs(math.Sin(angle+phase)), nil

	case Exponential:
		rate := p[1]
		if rate == 0 {
			rate = 3
		}
		return amp * (math.Exp(rate*t) - 1) / (math.Exp(rate) - 1), nil

	case Logarithmic:
		rate := p[1]
		if rate == 0 {
			rate = 3
		}
		return amp * math.Log1p(rate*t) / math.Log1p(rate), nil

	default:
		return 0, ErrUnknownCurveKind{Kind: k}
	}
}

func smoothstep(t float64) float64 {
	t = clamp01(t)
	return t * t * (3 - 2*t)
}

func smootherstep(t float64) float64 {
	t = clamp01(t)
	return t * t * t * (t*(t*6-15) + 10)
}

// Curve is the tagged union Native | Custom. Exactly one of the two forms is
// meaningful at a time, selected by IsCustom.
type Curve struct {
	IsCustom bool
	Native   NativeSpec
	Points   []CurvePoint // sorted by T ascending, used when IsCustom
}

func NewNative(kind NativeKind, params Params) Curve {
	return Curve{Native: NativeSpec{Kind: kind, Params: params, Center: 0.5}}
}

func NewCustom(points []CurvePoint) Curve {
	return Curve{IsCustom: true, Points: points}
}

// Sample evaluates the curve at an arbitrary t in [0,1] by linear
// interpolation between generated/stored points. For native curves the
// implementation samples at a fixed internal resolution and interpolates,
// matching the "results must agree with sampled form within epsilon"
// contract in spec.md §4.2.4.
func (c Curve) Sample(t float64) (float64, error) {
	t = clamp01(t)
	if c.IsCustom {
		return sampleSorted(c.Points, t), nil
	}
	pts, err := Generate(c.Native, 256)
	if err != nil {
		return 0, err
	}
	return sampleSorted(pts, t), nil
}

func sampleSorted(pts []CurvePoint, t float64) float64 {
	if len(pts) == 0 {
		return 0
	}
	if len(pts) == 1 {
		return pts[0].V
	}
	if t <= pts[0].T {
		return pts[0].V
	}
	last := pts[len(pts)-1]
	if t >= last.T {
		return last.V
	}
	lo, hi := 0, len(pts)-1
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if pts[mid].T <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	a, b := pts[lo], pts[hi]
	if b.T == a.T {
		return a.V
	}
	frac := (t - a.T) / (b.T - a.T)
	return a.V + frac*(b.V-a.V)
}
