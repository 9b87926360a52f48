package charsheet

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// A4 landscape canvas at 300 DPI with the contact sheet grid constants.
const (
	SheetWidth  = 3508
	SheetHeight = 2480
	Margin      = 56
	Gutter      = 24
	Columns     = 6
)

// Slot names in the fixed sheet composition. Top row holds the front and
// left-side turnarounds plus two closeups; the bottom row holds the back and
// right-side turnarounds with the front closeup spanning two columns.
const (
	SlotFront      = "front"
	SlotLeftFront  = "left_front"
	SlotLeftSide   = "left_side"
	SlotLeftBack   = "left_back"
	SlotBack       = "back"
	SlotRightFront = "right_front"
	SlotRightSide  = "right_side"
	SlotRightBack  = "right_back"
	SlotCloseFront = "close_front"
	SlotCloseSide  = "close_side"
	SlotClose3Q    = "close_3q"
)

// Rect is a pixel region on the sheet canvas, origin bottom-left.
type Rect struct {
	X, Y, W, H int
}

// RequiredSlots lists every slot the fixed layout needs, sorted.
func RequiredSlots() []string {
	slots := []string{
		SlotFront, SlotLeftFront, SlotLeftSide, SlotLeftBack,
		SlotBack, SlotRightFront, SlotRightSide, SlotRightBack,
		SlotCloseFront, SlotCloseSide, SlotClose3Q,
	}
	sort.Strings(slots)
	return slots
}

// Slots returns the named regions of the A4 composition.
func Slots() map[string]Rect {
	contentW := SheetWidth - Margin*2
	contentH := SheetHeight - Margin*2
	colW := (contentW - Gutter*(Columns-1)) / Columns
	rowH := (contentH - Gutter) / 2

	xCol := func(col int) int { return Margin + (colW+Gutter)*col }
	yBottom := Margin
	yTop := Margin + rowH + Gutter

	return map[string]Rect{
		SlotFront:      {X: xCol(0), Y: yTop, W: colW, H: rowH},
		SlotLeftFront:  {X: xCol(1), Y: yTop, W: colW, H: rowH},
		SlotLeftSide:   {X: xCol(2), Y: yTop, W: colW, H: rowH},
		SlotLeftBack:   {X: xCol(3), Y: yTop, W: colW, H: rowH},
		SlotClose3Q:    {X: xCol(4), Y: yTop, W: colW, H: rowH},
		SlotCloseSide:  {X: xCol(5), Y: yTop, W: colW, H: rowH},
		SlotBack:       {X: xCol(0), Y: yBottom, W: colW, H: rowH},
		SlotRightFront: {X: xCol(1), Y: yBottom, W: colW, H: rowH},
		SlotRightSide:  {X: xCol(2), Y: yBottom, W: colW, H: rowH},
		SlotRightBack:  {X: xCol(3), Y: yBottom, W: colW, H: rowH},
		SlotCloseFront: {X: xCol(4), Y: yBottom, W: colW*2 + Gutter, H: rowH},
	}
}

// SlotKey maps a render name or filename to its sheet slot. Names are
// lowercased and stripped to alphanumerics before matching; composite
// directions are checked before plain front/back so "bodyleftfront" never
// lands in the front slot.
func SlotKey(name string) (string, bool) {
	key := normalizeShotName(name)
	switch {
	case strings.Contains(key, "close3q"):
		return SlotClose3Q, true
	case strings.Contains(key, "closefront"):
		return SlotCloseFront, true
	case strings.Contains(key, "closeside"):
		return SlotCloseSide, true
	case strings.Contains(key, "bodyleftfront"):
		return SlotLeftFront, true
	case strings.Contains(key, "bodyleftside"):
		return SlotLeftSide, true
	case strings.Contains(key, "bodyleftback"):
		return SlotLeftBack, true
	case strings.Contains(key, "bodyrightfront"):
		return SlotRightFront, true
	case strings.Contains(key, "bodyrightside"):
		return SlotRightSide, true
	case strings.Contains(key, "bodyrightback"):
		return SlotRightBack, true
	case strings.Contains(key, "bodyback"):
		return SlotBack, true
	case strings.Contains(key, "bodyfront"):
		return SlotFront, true
	}
	return "", false
}

func normalizeShotName(name string) string {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SheetLayout assigns render names to slot rectangles. The first name to
// claim a slot keeps it. All required slots must be filled; the error lists
// what is missing.
func SheetLayout(names []string) (map[string]Rect, map[string]string, error) {
	assigned := map[string]string{}
	for _, name := range names {
		slot, ok := SlotKey(name)
		if !ok {
			continue
		}
		if _, taken := assigned[slot]; !taken {
			assigned[slot] = name
		}
	}

	var missing []string
	for _, slot := range RequiredSlots() {
		if _, ok := assigned[slot]; !ok {
			missing = append(missing, slot)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required views: %s", strings.Join(missing, ", "))
	}
	return Slots(), assigned, nil
}

// FitRegion scales a source image into a slot region, preserving aspect and
// centering. scale multiplies the fit, floored at 0.1 so a bad per-shot
// scale cannot collapse the image.
func FitRegion(srcW, srcH int, region Rect, scale float64) Rect {
	if srcW <= 0 || srcH <= 0 || region.W <= 0 || region.H <= 0 {
		return Rect{X: region.X, Y: region.Y}
	}
	fit := math.Min(float64(region.W)/float64(srcW), float64(region.H)/float64(srcH))
	fit *= math.Max(0.1, scale)
	dstW := int(float64(srcW) * fit)
	if dstW < 1 {
		dstW = 1
	}
	dstH := int(float64(srcH) * fit)
	if dstH < 1 {
		dstH = 1
	}
	x := region.X
	if region.W > dstW {
		x += (region.W - dstW) / 2
	}
	y := region.Y
	if region.H > dstH {
		y += (region.H - dstH) / 2
	}
	return Rect{X: x, Y: y, W: dstW, H: dstH}
}
