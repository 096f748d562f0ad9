package style

// Display selects the layout mode a node uses for its children.
type Display uint8

const (
	DisplayFlex Display = iota
	DisplayGrid
	DisplayBlock
	DisplayNone
)

// FlexDirection specifies the main axis for laying out children.
type FlexDirection uint8

const (
	Row FlexDirection = iota
	Column
	RowReverse
	ColumnReverse
)

// IsRow reports whether the main axis is horizontal.
func (d FlexDirection) IsRow() bool {
	return d == Row || d == RowReverse
}

// IsReverse reports whether items are placed from the main-end edge.
func (d FlexDirection) IsReverse() bool {
	return d == RowReverse || d == ColumnReverse
}

// FlexWrap controls whether items may wrap onto new lines.
type FlexWrap uint8

const (
	NoWrap FlexWrap = iota
	Wrap
	WrapReverse
)

// Justify specifies how children are distributed along the main axis.
type Justify uint8

const (
	JustifyStart Justify = iota
	JustifyEnd
	JustifyCenter
	JustifySpaceBetween
	JustifySpaceAround
	JustifySpaceEvenly
)

// Align specifies how children are positioned on the cross axis.
// AlignAuto is only meaningful for align-self, where it defers to the
// parent's align-items.
type Align uint8

const (
	AlignAuto Align = iota
	AlignStart
	AlignEnd
	AlignCenter
	AlignStretch
	AlignBaseline
)

// Edges holds a dimension for each side of a box.
type Edges struct {
	Top, Right, Bottom, Left Dimension
}

// EdgesAll returns Edges with the same dimension on all sides.
func EdgesAll(d Dimension) Edges {
	return Edges{Top: d, Right: d, Bottom: d, Left: d}
}

// Gap holds the spacing between columns and between rows.
type Gap struct {
	Column, Row Dimension
}

// Style is the engine-side representation of a node's layout properties.
//
// Style remembers which properties were set explicitly so that Decode can
// reproduce the descriptor it was encoded from.
type Style struct {
	Display        Display
	FlexDirection  FlexDirection
	FlexWrap       FlexWrap
	JustifyContent Justify
	AlignItems     Align
	AlignSelf      Align

	FlexGrow   float64
	FlexShrink float64
	FlexBasis  Dimension

	Width     Dimension
	Height    Dimension
	MinWidth  Dimension
	MinHeight Dimension
	MaxWidth  Dimension
	MaxHeight Dimension

	Margin  Edges
	Padding Edges
	Border  Edges
	Gap     Gap

	GridTemplateColumns []Dimension
	GridTemplateRows    []Dimension

	// Extra holds top-level keys the codec does not recognize. They are
	// carried through untouched and never influence layout.
	Extra map[string]any

	set fieldMask
}

// DefaultStyle returns the style a node has when only display is given.
func DefaultStyle() Style {
	return Style{
		Display:        DisplayFlex,
		FlexDirection:  Row,
		JustifyContent: JustifyStart,
		AlignItems:     AlignStretch,
		AlignSelf:      AlignAuto,
		FlexShrink:     1,
		FlexBasis:      Auto(),
		Width:          Auto(),
		Height:         Auto(),
		MinWidth:       Auto(),
		MinHeight:      Auto(),
		MaxWidth:       Auto(),
		MaxHeight:      Auto(),
		Margin:         EdgesAll(Points(0)),
		Padding:        EdgesAll(Points(0)),
		Border:         EdgesAll(Points(0)),
		Gap:            Gap{Column: Points(0), Row: Points(0)},
	}
}

// IsSet reports whether the named descriptor key was present when the style
// was encoded. Styles built in Go report every recognized key as unset.
func (s Style) IsSet(key string) bool {
	f, ok := fieldByKey[key]
	return ok && s.set.has(f)
}

// With marks key as explicitly set so Decode emits it. It is meant for
// styles constructed in Go rather than decoded from a host.
func (s Style) With(keys ...string) Style {
	for _, k := range keys {
		if f, ok := fieldByKey[k]; ok {
			s.set = s.set.with(f)
		}
	}
	return s
}

type field uint8

const (
	fieldDisplay field = iota
	fieldFlexDirection
	fieldFlexWrap
	fieldJustifyContent
	fieldAlignItems
	fieldAlignSelf
	fieldFlexGrow
	fieldFlexShrink
	fieldFlexBasis
	fieldWidth
	fieldHeight
	fieldMinWidth
	fieldMinHeight
	fieldMaxWidth
	fieldMaxHeight
	fieldMargin
	fieldPadding
	fieldBorder
	fieldGap
	fieldGridTemplateColumns
	fieldGridTemplateRows
	fieldCount
)

type fieldMask uint32

func (m fieldMask) has(f field) bool       { return m&(1<<f) != 0 }
func (m fieldMask) with(f field) fieldMask { return m | 1<<f }

// Descriptor keys, in the order the codec processes them.
var fieldKeys = [fieldCount]string{
	fieldDisplay:             "display",
	fieldFlexDirection:       "flexDirection",
	fieldFlexWrap:            "flexWrap",
	fieldJustifyContent:      "justifyContent",
	fieldAlignItems:          "alignItems",
	fieldAlignSelf:           "alignSelf",
	fieldFlexGrow:            "flexGrow",
	fieldFlexShrink:          "flexShrink",
	fieldFlexBasis:           "flexBasis",
	fieldWidth:               "width",
	fieldHeight:              "height",
	fieldMinWidth:            "minWidth",
	fieldMinHeight:           "minHeight",
	fieldMaxWidth:            "maxWidth",
	fieldMaxHeight:           "maxHeight",
	fieldMargin:              "margin",
	fieldPadding:             "padding",
	fieldBorder:              "border",
	fieldGap:                 "gap",
	fieldGridTemplateColumns: "gridTemplateColumns",
	fieldGridTemplateRows:    "gridTemplateRows",
}

var fieldByKey = func() map[string]field {
	m := make(map[string]field, fieldCount)
	for f, k := range fieldKeys {
		m[k] = field(f)
	}
	return m
}()
