package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Axis string

const (
	AxisRow    Axis = "row"
	AxisColumn Axis = "column"
)

func (a Axis) Valid() bool { return a == AxisRow || a == AxisColumn }

// Other returns the crossing axis.
func (a Axis) Other() Axis {
	if a == AxisRow {
		return AxisColumn
	}
	return AxisRow
}

type SizeType string

const (
	SizeFixed   SizeType = "fixed"
	SizeContent SizeType = "content"
	SizeBounded SizeType = "bounded"
)

type Unit string

const (
	UnitNone  Unit = ""
	UnitPixel Unit = "px"
	UnitPoint Unit = "pt"
	UnitDLU   Unit = "dlu"
	UnitInch  Unit = "in"
	UnitMM    Unit = "mm"
	UnitCM    Unit = "cm"
)

var knownUnits = []Unit{UnitPixel, UnitPoint, UnitDLU, UnitInch, UnitMM, UnitCM}

type Alignment string

const (
	AlignFill   Alignment = "fill"
	AlignStart  Alignment = "start"
	AlignCenter Alignment = "center"
	AlignEnd    Alignment = "end"
)

var ErrInvalidSpec = errors.New("invalid placement spec")

// Spec describes how a single row or column is sized and how content aligns in it.
// Specs are plain values: copying one snapshots it.
type Spec struct {
	SizeType     SizeType  `json:"sizeType" yaml:"sizeType"`
	Size         float64   `json:"size,omitempty" yaml:"size,omitempty"`
	Unit         Unit      `json:"unit,omitempty" yaml:"unit,omitempty"`
	Alignment    Alignment `json:"alignment" yaml:"alignment"`
	ResizeWeight float64   `json:"resizeWeight,omitempty" yaml:"resizeWeight,omitempty"`
}

// DefaultSpec is a content-sized track that fills its cells.
func DefaultSpec() Spec {
	return Spec{SizeType: SizeContent, Alignment: AlignFill}
}

func Fixed(size float64, unit Unit) Spec {
	return Spec{SizeType: SizeFixed, Size: size, Unit: unit, Alignment: AlignFill}
}

func (s Spec) WithAlignment(a Alignment) Spec {
	s.Alignment = a
	return s
}

func (s Spec) WithResizeWeight(w float64) Spec {
	s.ResizeWeight = w
	return s
}

func (s Spec) Validate() error {
	switch s.SizeType {
	case SizeContent:
		if s.Size != 0 || s.Unit != UnitNone {
			return fmt.Errorf("%w: content size takes no size or unit", ErrInvalidSpec)
		}
	case SizeFixed, SizeBounded:
		if s.Size < 0 {
			return fmt.Errorf("%w: negative size %v", ErrInvalidSpec, s.Size)
		}
		if !validUnit(s.Unit) {
			return fmt.Errorf("%w: unknown unit %q", ErrInvalidSpec, s.Unit)
		}
	default:
		return fmt.Errorf("%w: unknown size type %q", ErrInvalidSpec, s.SizeType)
	}
	switch s.Alignment {
	case AlignFill, AlignStart, AlignCenter, AlignEnd:
	default:
		return fmt.Errorf("%w: unknown alignment %q", ErrInvalidSpec, s.Alignment)
	}
	if s.ResizeWeight < 0 || s.ResizeWeight > 1 {
		return fmt.Errorf("%w: resize weight %v outside [0,1]", ErrInvalidSpec, s.ResizeWeight)
	}
	return nil
}

// String encodes the spec as align:size[:grow(w)], the inverse of ParseSpec.
func (s Spec) String() string {
	var size string
	switch s.SizeType {
	case SizeFixed:
		size = formatNumber(s.Size) + string(s.Unit)
	case SizeBounded:
		size = "bounded(" + formatNumber(s.Size) + string(s.Unit) + ")"
	default:
		size = "pref"
	}
	out := string(s.Alignment) + ":" + size
	if s.ResizeWeight != 0 {
		out += ":grow(" + formatNumber(s.ResizeWeight) + ")"
	}
	return out
}

// ParseSpec reads the align:size[:grow(w)] encoding. The alignment part may be omitted
// ("20px" is fill:20px). left/top and right/bottom are accepted for start and end.
func ParseSpec(s string) (Spec, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if raw == "" {
		return Spec{}, fmt.Errorf("%w: empty", ErrInvalidSpec)
	}
	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidSpec, s)
	}

	out := DefaultSpec()
	if a, ok := parseAlignment(parts[0]); ok {
		out.Alignment = a
		parts = parts[1:]
		if len(parts) == 0 {
			return Spec{}, fmt.Errorf("%w: missing size in %q", ErrInvalidSpec, s)
		}
	}

	size := strings.TrimSpace(parts[0])
	switch {
	case size == "pref" || size == "content":
		out.SizeType = SizeContent
	case strings.HasPrefix(size, "bounded(") && strings.HasSuffix(size, ")"):
		n, u, err := parseMeasure(strings.TrimSuffix(strings.TrimPrefix(size, "bounded("), ")"))
		if err != nil {
			return Spec{}, err
		}
		out.SizeType, out.Size, out.Unit = SizeBounded, n, u
	default:
		n, u, err := parseMeasure(size)
		if err != nil {
			return Spec{}, err
		}
		out.SizeType, out.Size, out.Unit = SizeFixed, n, u
	}

	if len(parts) == 2 {
		g := strings.TrimSpace(parts[1])
		switch {
		case g == "grow":
			out.ResizeWeight = 1
		case strings.HasPrefix(g, "grow(") && strings.HasSuffix(g, ")"):
			w, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(g, "grow("), ")"), 64)
			if err != nil {
				return Spec{}, fmt.Errorf("%w: bad resize weight in %q", ErrInvalidSpec, s)
			}
			out.ResizeWeight = w
		default:
			return Spec{}, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidSpec, g, s)
		}
	}

	if err := out.Validate(); err != nil {
		return Spec{}, err
	}
	return out, nil
}

// MustParseSpec is ParseSpec for literals known to be valid.
func MustParseSpec(s string) Spec {
	sp, err := ParseSpec(s)
	if err != nil {
		panic(err)
	}
	return sp
}

func parseAlignment(s string) (Alignment, bool) {
	switch strings.TrimSpace(s) {
	case "fill", "f":
		return AlignFill, true
	case "start", "left", "top", "l", "t":
		return AlignStart, true
	case "center", "c":
		return AlignCenter, true
	case "end", "right", "bottom", "r", "b":
		return AlignEnd, true
	}
	return "", false
}

func parseMeasure(s string) (float64, Unit, error) {
	s = strings.TrimSpace(s)
	for _, u := range knownUnits {
		if !strings.HasSuffix(s, string(u)) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, string(u)), 64)
		if err != nil {
			break
		}
		return n, u, nil
	}
	return 0, UnitNone, fmt.Errorf("%w: bad size %q", ErrInvalidSpec, s)
}

func validUnit(u Unit) bool {
	for _, k := range knownUnits {
		if u == k {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
