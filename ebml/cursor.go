package ebml

// Cursor iterates sibling elements inside a window. It is forward-only
// and not restartable: once advanced past an element there is no way
// back short of building a fresh Cursor over the same source (which
// starts again from offset 0).
type Cursor struct {
	source  ByteSource
	nextPos uint64
	valid   bool
	current Element
	err     error
}

// NewCursor builds a cursor over source and positions it at the first
// element, if any.
func NewCursor(source ByteSource) *Cursor {
	c := &Cursor{source: source, valid: true}
	c.Advance()
	return c
}

// EndCursor returns a cursor that is already at the sentinel end
// value, useful as an initial "nothing read yet" placeholder for
// per-track state that will be replaced by a real cursor on first use.
func EndCursor() *Cursor {
	return &Cursor{valid: false}
}

// Advance moves the cursor to the next sibling element. Once the
// cursor is invalid, Advance is a no-op.
func (c *Cursor) Advance() {
	if !c.valid {
		return
	}
	saved := c.source.Tell()
	if err := c.source.Seek(c.nextPos); err != nil {
		c.valid = false
		// best effort: restore the source cursor even on failure to
		// seek past the window, so sibling cursors over the same
		// source see it where they left it.
		c.source.Seek(saved)
		return
	}
	el, err := ReadElement(c.source)
	if err != nil {
		c.valid = false
		c.err = err
		c.source.Seek(saved)
		return
	}
	c.current = el
	c.nextPos = c.source.Tell() + el.Size
	c.source.Seek(saved)
}

// Current returns the element the cursor is positioned at. Calling it
// on an invalid cursor returns the zero Element.
func (c *Cursor) Current() Element {
	return c.current
}

// Valid reports whether the cursor is positioned at an element.
func (c *Cursor) Valid() bool {
	return c.valid
}

// Err returns the error that invalidated the cursor, if invalidation
// was caused by something other than a clean end-of-siblings seek
// failure (a malformed id/size vint, for instance).
func (c *Cursor) Err() error {
	return c.err
}

// Until advances repeatedly until Current().ID matches one of ids or
// the cursor becomes invalid.
func (c *Cursor) Until(ids ...uint64) {
	for c.valid {
		for _, id := range ids {
			if c.current.ID == id {
				return
			}
		}
		c.Advance()
	}
}

// AtEnd reports whether the cursor has reached the sentinel end value,
// defined as "no longer positioned at any element". A valid cursor is
// never equal to end, even to a copy of itself at the same element.
func (c *Cursor) AtEnd() bool {
	return !c.valid
}
