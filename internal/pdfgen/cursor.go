package pdfgen

// LayoutCursor is the running vertical position used to place document
// sections whose height is not known until earlier content is measured. It is
// threaded through each rendering step as an explicit value; steps return the
// advanced cursor rather than mutating hidden renderer state.
type LayoutCursor float64

// Advance returns a cursor moved down by delta layout units.
func (c LayoutCursor) Advance(delta float64) LayoutCursor {
	return c + LayoutCursor(delta)
}

// Y is the cursor's absolute vertical position on the page.
func (c LayoutCursor) Y() float64 {
	return float64(c)
}
