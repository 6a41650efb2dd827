package ebml

// Element is one (id, size, payload) EBML node. Payload is a window
// over the source it was read from, bounded to exactly Size bytes
// starting immediately after the size vint.
type Element struct {
	ID      uint64
	Size    uint64
	Payload *WindowedSource
}

// ReadElement reads one element id/size pair from src and returns it
// with a payload window of the advertised size. It does not validate
// that Size fits within any enclosing window; a caller reading through
// Payload on an oversized child will see short reads once the parent
// window clamps it.
func ReadElement(src ByteSource) (Element, error) {
	id, err := ReadUVint(src)
	if err != nil {
		return Element{}, err
	}
	size, err := ReadUVint(src)
	if err != nil {
		return Element{}, err
	}
	start := src.Tell()
	return Element{
		ID:      id,
		Size:    size,
		Payload: NewWindowedSource(src, start, size),
	}, nil
}

// ReadString reads the element's entire payload as a string,
// consuming the payload window from its current position.
func (e Element) ReadString() (string, error) {
	buf := make([]byte, e.Size)
	if err := readFull(e.Payload, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadBytes reads the element's entire payload as a byte slice.
func (e Element) ReadBytes() ([]byte, error) {
	buf := make([]byte, e.Size)
	if err := readFull(e.Payload, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint reads the element's payload as a fixed-width unsigned
// integer of Size bytes.
func (e Element) ReadUint() (uint64, error) {
	return ReadUint(e.Payload, e.Size)
}

// ReadFloat reads the element's payload as a 4- or 8-byte IEEE float.
func (e Element) ReadFloat() (float64, error) {
	return ReadFloat(e.Payload, e.Size)
}
