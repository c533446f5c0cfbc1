package model

import (
	"errors"
	"testing"
)

func TestParseSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Spec
	}{
		{in: "pref", want: Spec{SizeType: SizeContent, Alignment: AlignFill}},
		{in: "fill:pref", want: Spec{SizeType: SizeContent, Alignment: AlignFill}},
		{in: "20px", want: Spec{SizeType: SizeFixed, Size: 20, Unit: UnitPixel, Alignment: AlignFill}},
		{in: "center:4dlu", want: Spec{SizeType: SizeFixed, Size: 4, Unit: UnitDLU, Alignment: AlignCenter}},
		{in: "left:bounded(40pt):grow(0.5)", want: Spec{SizeType: SizeBounded, Size: 40, Unit: UnitPoint, Alignment: AlignStart, ResizeWeight: 0.5}},
		{in: "END:pref:grow", want: Spec{SizeType: SizeContent, Alignment: AlignEnd, ResizeWeight: 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSpec(tt.in)
			if err != nil {
				t.Fatalf("ParseSpec(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseSpec(%q):\n got: %+v\nwant: %+v", tt.in, got, tt.want)
			}
			again, err := ParseSpec(got.String())
			if err != nil || again != got {
				t.Fatalf("String round trip for %q: %q -> %+v (%v)", tt.in, got.String(), again, err)
			}
		})
	}
}

func TestParseSpec_Rejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "fill", "fill:20", "fill:20furlongs", "fill:pref:shrink", "a:b:c:d", "fill:pref:grow(2)", "fill:-3px"} {
		if _, err := ParseSpec(in); !errors.Is(err, ErrInvalidSpec) {
			t.Fatalf("ParseSpec(%q): expected ErrInvalidSpec, got %v", in, err)
		}
	}
}

func TestSpec_IsValueType(t *testing.T) {
	a := Fixed(10, UnitPixel)
	b := a
	b.Size = 99
	if a.Size != 10 {
		t.Fatalf("copy mutated original: %+v", a)
	}
	if a == b {
		t.Fatalf("expected specs to differ")
	}
}

func TestGroupAssignment_ShiftAndWith(t *testing.T) {
	g := GroupAssignment{1: 1, 3: 2, 4: 2}

	up := g.Shift(3, 1)
	if up.Of(1) != 1 || up.Of(3) != 0 || up.Of(4) != 2 || up.Of(5) != 2 {
		t.Fatalf("unexpected shift up: %v", up)
	}

	cleared := g.With(3, 0)
	down := cleared.Shift(4, -1)
	if down.Of(3) != 2 || down.Of(4) != 0 || len(down) != 2 {
		t.Fatalf("unexpected shift down: %v", down)
	}

	if g.Of(3) != 2 {
		t.Fatalf("With must not mutate receiver: %v", g)
	}
	if got := g.Members(2); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected members: %v", got)
	}
}
