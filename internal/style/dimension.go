package style

// Unit tags how a Dimension's value is interpreted.
type Unit uint8

const (
	UnitAuto Unit = iota
	UnitPoints
	UnitPercent
	UnitMinContent
	UnitMaxContent
	UnitFitContent
)

var unitNames = map[Unit]string{
	UnitAuto:       "auto",
	UnitPoints:     "points",
	UnitPercent:    "percent",
	UnitMinContent: "min-content",
	UnitMaxContent: "max-content",
	UnitFitContent: "fit-content",
}

var unitByName = func() map[string]Unit {
	m := make(map[string]Unit, len(unitNames))
	for u, n := range unitNames {
		m[n] = u
	}
	return m
}()

// String returns the descriptor tag for u.
func (u Unit) String() string {
	if n, ok := unitNames[u]; ok {
		return n
	}
	return "unknown"
}

// HasValue reports whether dimensions of this unit carry a number.
func (u Unit) HasValue() bool {
	return u == UnitPoints || u == UnitPercent || u == UnitFitContent
}

// Dimension is a length tagged with its unit.
type Dimension struct {
	Unit  Unit
	Value float64
}

// Auto returns a dimension computed from content or flex.
func Auto() Dimension { return Dimension{Unit: UnitAuto} }

// Points returns an absolute length.
func Points(v float64) Dimension { return Dimension{Unit: UnitPoints, Value: v} }

// Percent returns a length relative to the parent. The value is on a
// 0-100 scale (50 = 50%).
func Percent(p float64) Dimension { return Dimension{Unit: UnitPercent, Value: p} }

// MinContent returns the min-content intrinsic size.
func MinContent() Dimension { return Dimension{Unit: UnitMinContent} }

// MaxContent returns the max-content intrinsic size.
func MaxContent() Dimension { return Dimension{Unit: UnitMaxContent} }

// FitContent returns the fit-content size clamped to limit points.
func FitContent(limit float64) Dimension { return Dimension{Unit: UnitFitContent, Value: limit} }

// IsAuto returns true if this dimension is computed from content/flex.
func (d Dimension) IsAuto() bool {
	return d.Unit == UnitAuto
}

// Resolve computes the length against the parent size. Percentages need a
// definite parent; intrinsic units never resolve to a fixed length.
func (d Dimension) Resolve(parent float32, parentKnown bool) (float32, bool) {
	switch d.Unit {
	case UnitPoints:
		return float32(d.Value), true
	case UnitPercent:
		if !parentKnown {
			return 0, false
		}
		return parent * float32(d.Value) / 100, true
	default:
		return 0, false
	}
}

// ResolveOr is Resolve with a fallback for unresolvable dimensions.
func (d Dimension) ResolveOr(parent float32, parentKnown bool, fallback float32) float32 {
	if v, ok := d.Resolve(parent, parentKnown); ok {
		return v
	}
	return fallback
}
