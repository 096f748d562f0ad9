package style

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Descriptor is the host's structured description of one node's style.
// Dimensions are objects of the form {"unit": "points", "value": 100}.
type Descriptor map[string]any

type enum[T comparable] struct {
	names  map[T]string
	values map[string]T
}

func newEnum[T comparable](names map[T]string) enum[T] {
	e := enum[T]{names: names, values: make(map[string]T, len(names))}
	for v, n := range names {
		e.values[n] = v
	}
	return e
}

func (e enum[T]) parse(path string, raw any) (T, error) {
	var zero T
	s, ok := raw.(string)
	if !ok {
		return zero, invalidValue(path, "expected a keyword string, got %T", raw)
	}
	v, ok := e.values[s]
	if !ok {
		return zero, invalidValue(path, "unknown keyword %q (must be one of: %s)", s, e.list())
	}
	return v, nil
}

func (e enum[T]) list() string {
	names := make([]string, 0, len(e.values))
	for n := range e.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

var (
	displays = newEnum(map[Display]string{
		DisplayFlex:  "flex",
		DisplayGrid:  "grid",
		DisplayBlock: "block",
		DisplayNone:  "none",
	})
	directions = newEnum(map[FlexDirection]string{
		Row:           "row",
		Column:        "column",
		RowReverse:    "row-reverse",
		ColumnReverse: "column-reverse",
	})
	wraps = newEnum(map[FlexWrap]string{
		NoWrap:      "nowrap",
		Wrap:        "wrap",
		WrapReverse: "wrap-reverse",
	})
	justifies = newEnum(map[Justify]string{
		JustifyStart:        "start",
		JustifyEnd:          "end",
		JustifyCenter:       "center",
		JustifySpaceBetween: "space-between",
		JustifySpaceAround:  "space-around",
		JustifySpaceEvenly:  "space-evenly",
	})
	alignItems = newEnum(map[Align]string{
		AlignStart:    "start",
		AlignEnd:      "end",
		AlignCenter:   "center",
		AlignStretch:  "stretch",
		AlignBaseline: "baseline",
	})
	alignSelves = newEnum(map[Align]string{
		AlignAuto:     "auto",
		AlignStart:    "start",
		AlignEnd:      "end",
		AlignCenter:   "center",
		AlignStretch:  "stretch",
		AlignBaseline: "baseline",
	})
)

type unitSet uint8

func units(us ...Unit) unitSet {
	var s unitSet
	for _, u := range us {
		s |= 1 << u
	}
	return s
}

func (s unitSet) has(u Unit) bool { return s&(1<<u) != 0 }

var (
	sizeUnits    = units(UnitAuto, UnitPoints, UnitPercent, UnitMinContent, UnitMaxContent, UnitFitContent)
	marginUnits  = units(UnitAuto, UnitPoints, UnitPercent)
	paddingUnits = units(UnitPoints, UnitPercent)
)

// Encode converts a host descriptor into a Style.
//
// display is required. Every dimension must carry a recognized unit tag.
// Unknown top-level keys are kept in Style.Extra and otherwise ignored.
func Encode(d Descriptor) (Style, error) {
	if _, ok := d["display"]; !ok {
		return Style{}, missingField("display")
	}

	s := DefaultStyle()
	for f := field(0); f < fieldCount; f++ {
		key := fieldKeys[f]
		raw, ok := d[key]
		if !ok {
			continue
		}
		if err := s.encodeField(f, key, raw); err != nil {
			return Style{}, err
		}
		s.set = s.set.with(f)
	}

	for k, v := range d {
		if _, known := fieldByKey[k]; known {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[k] = v
	}

	return s, nil
}

func (s *Style) encodeField(f field, key string, raw any) error {
	var err error
	switch f {
	case fieldDisplay:
		s.Display, err = displays.parse(key, raw)
	case fieldFlexDirection:
		s.FlexDirection, err = directions.parse(key, raw)
	case fieldFlexWrap:
		s.FlexWrap, err = wraps.parse(key, raw)
	case fieldJustifyContent:
		s.JustifyContent, err = justifies.parse(key, raw)
	case fieldAlignItems:
		s.AlignItems, err = alignItems.parse(key, raw)
	case fieldAlignSelf:
		s.AlignSelf, err = alignSelves.parse(key, raw)
	case fieldFlexGrow:
		s.FlexGrow, err = encodeFactor(key, raw)
	case fieldFlexShrink:
		s.FlexShrink, err = encodeFactor(key, raw)
	case fieldFlexBasis:
		s.FlexBasis, err = encodeDimension(key, raw, sizeUnits)
	case fieldWidth:
		s.Width, err = encodeDimension(key, raw, sizeUnits)
	case fieldHeight:
		s.Height, err = encodeDimension(key, raw, sizeUnits)
	case fieldMinWidth:
		s.MinWidth, err = encodeDimension(key, raw, sizeUnits)
	case fieldMinHeight:
		s.MinHeight, err = encodeDimension(key, raw, sizeUnits)
	case fieldMaxWidth:
		s.MaxWidth, err = encodeDimension(key, raw, sizeUnits)
	case fieldMaxHeight:
		s.MaxHeight, err = encodeDimension(key, raw, sizeUnits)
	case fieldMargin:
		s.Margin, err = encodeEdges(key, raw, marginUnits)
	case fieldPadding:
		s.Padding, err = encodeEdges(key, raw, paddingUnits)
	case fieldBorder:
		s.Border, err = encodeEdges(key, raw, paddingUnits)
	case fieldGap:
		s.Gap, err = encodeGap(key, raw)
	case fieldGridTemplateColumns:
		s.GridTemplateColumns, err = encodeTracks(key, raw)
	case fieldGridTemplateRows:
		s.GridTemplateRows, err = encodeTracks(key, raw)
	}
	return err
}

func asObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case Descriptor:
		return v, true
	default:
		return nil, false
	}
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func encodeNumber(path string, raw any) (float64, error) {
	n, ok := toFloat(raw)
	if !ok {
		return 0, invalidValue(path, "expected a number, got %T", raw)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, invalidValue(path, "number must be finite")
	}
	return n, nil
}

func encodeFactor(path string, raw any) (float64, error) {
	n, err := encodeNumber(path, raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, invalidValue(path, "must not be negative")
	}
	return n, nil
}

func encodeDimension(path string, raw any, allowed unitSet) (Dimension, error) {
	obj, ok := asObject(raw)
	if !ok {
		return Dimension{}, unrecognizedUnit(path, "expected {unit, value}, got %T", raw)
	}

	tagRaw, ok := obj["unit"]
	if !ok {
		return Dimension{}, unrecognizedUnit(path, "no unit tag")
	}
	tag, ok := tagRaw.(string)
	if !ok {
		return Dimension{}, unrecognizedUnit(path, "unit tag must be a string, got %T", tagRaw)
	}
	u, ok := unitByName[tag]
	if !ok {
		return Dimension{}, unrecognizedUnit(path, "unknown unit %q", tag)
	}
	if !allowed.has(u) {
		return Dimension{}, invalidValue(path, "unit %q is not allowed here", tag)
	}

	for k := range obj {
		if k != "unit" && k != "value" {
			return Dimension{}, invalidValue(path, "unknown key %q", k)
		}
	}

	valueRaw, hasValue := obj["value"]
	if !u.HasValue() {
		if hasValue {
			return Dimension{}, invalidValue(path, "unit %q takes no value", tag)
		}
		return Dimension{Unit: u}, nil
	}
	if !hasValue {
		return Dimension{}, invalidValue(path, "unit %q requires a value", tag)
	}
	n, err := encodeNumber(path+".value", valueRaw)
	if err != nil {
		return Dimension{}, err
	}
	return Dimension{Unit: u, Value: n}, nil
}

func encodeEdges(path string, raw any, allowed unitSet) (Edges, error) {
	obj, ok := asObject(raw)
	if !ok {
		return Edges{}, invalidValue(path, "expected {top, right, bottom, left}, got %T", raw)
	}
	var e Edges
	sides := []struct {
		name string
		dst  *Dimension
	}{
		{"top", &e.Top},
		{"right", &e.Right},
		{"bottom", &e.Bottom},
		{"left", &e.Left},
	}
	for _, side := range sides {
		v, ok := obj[side.name]
		if !ok {
			return Edges{}, missingField(path + "." + side.name)
		}
		d, err := encodeDimension(path+"."+side.name, v, allowed)
		if err != nil {
			return Edges{}, err
		}
		*side.dst = d
	}
	if len(obj) != len(sides) {
		return Edges{}, invalidValue(path, "unexpected keys besides top, right, bottom, left")
	}
	return e, nil
}

func encodeGap(path string, raw any) (Gap, error) {
	obj, ok := asObject(raw)
	if !ok {
		return Gap{}, invalidValue(path, "expected {column, row}, got %T", raw)
	}
	var g Gap
	axes := []struct {
		name string
		dst  *Dimension
	}{
		{"column", &g.Column},
		{"row", &g.Row},
	}
	for _, axis := range axes {
		v, ok := obj[axis.name]
		if !ok {
			return Gap{}, missingField(path + "." + axis.name)
		}
		d, err := encodeDimension(path+"."+axis.name, v, paddingUnits)
		if err != nil {
			return Gap{}, err
		}
		*axis.dst = d
	}
	if len(obj) != 2 {
		return Gap{}, invalidValue(path, "unexpected keys besides column, row")
	}
	return g, nil
}

func encodeTracks(path string, raw any) ([]Dimension, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, invalidValue(path, "expected a list of dimensions, got %T", raw)
	}
	tracks := make([]Dimension, 0, len(list))
	for i, item := range list {
		d, err := encodeDimension(indexPath(path, i), item, sizeUnits)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, d)
	}
	return tracks, nil
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// Decode converts a Style back into a host descriptor. Only keys that were
// present when the style was encoded are emitted, plus display which is
// always required, so Decode(Encode(d)) reproduces d.
func Decode(s Style) Descriptor {
	d := Descriptor{"display": displays.names[s.Display]}
	for f := field(0); f < fieldCount; f++ {
		if f == fieldDisplay || !s.set.has(f) {
			continue
		}
		d[fieldKeys[f]] = s.decodeField(f)
	}
	for k, v := range s.Extra {
		d[k] = v
	}
	return d
}

func (s Style) decodeField(f field) any {
	switch f {
	case fieldFlexDirection:
		return directions.names[s.FlexDirection]
	case fieldFlexWrap:
		return wraps.names[s.FlexWrap]
	case fieldJustifyContent:
		return justifies.names[s.JustifyContent]
	case fieldAlignItems:
		return alignItems.names[s.AlignItems]
	case fieldAlignSelf:
		return alignSelves.names[s.AlignSelf]
	case fieldFlexGrow:
		return s.FlexGrow
	case fieldFlexShrink:
		return s.FlexShrink
	case fieldFlexBasis:
		return decodeDimension(s.FlexBasis)
	case fieldWidth:
		return decodeDimension(s.Width)
	case fieldHeight:
		return decodeDimension(s.Height)
	case fieldMinWidth:
		return decodeDimension(s.MinWidth)
	case fieldMinHeight:
		return decodeDimension(s.MinHeight)
	case fieldMaxWidth:
		return decodeDimension(s.MaxWidth)
	case fieldMaxHeight:
		return decodeDimension(s.MaxHeight)
	case fieldMargin:
		return decodeEdges(s.Margin)
	case fieldPadding:
		return decodeEdges(s.Padding)
	case fieldBorder:
		return decodeEdges(s.Border)
	case fieldGap:
		return map[string]any{
			"column": decodeDimension(s.Gap.Column),
			"row":    decodeDimension(s.Gap.Row),
		}
	case fieldGridTemplateColumns:
		return decodeTracks(s.GridTemplateColumns)
	case fieldGridTemplateRows:
		return decodeTracks(s.GridTemplateRows)
	default:
		return nil
	}
}

func decodeDimension(d Dimension) map[string]any {
	out := map[string]any{"unit": d.Unit.String()}
	if d.Unit.HasValue() {
		out["value"] = d.Value
	}
	return out
}

func decodeEdges(e Edges) map[string]any {
	return map[string]any{
		"top":    decodeDimension(e.Top),
		"right":  decodeDimension(e.Right),
		"bottom": decodeDimension(e.Bottom),
		"left":   decodeDimension(e.Left),
	}
}

func decodeTracks(tracks []Dimension) []any {
	out := make([]any, len(tracks))
	for i, t := range tracks {
		out[i] = decodeDimension(t)
	}
	return out
}
