package matroska

import (
	"strings"

	"github.com/webmcast/mkvdemux/ebml"
)

// readHeader validates the leading EBML element and locates the
// Segment, returning the Segment element for the parser to retain.
func readHeader(source ebml.ByteSource) (ebml.Element, error) {
	outer := ebml.NewCursor(source)
	outer.Until(idEBML)
	if outer.AtEnd() {
		return ebml.Element{}, ebml.NewFormatError("Missing required element: EBML")
	}
	ebmlElement := outer.Current()

	header := ebml.NewCursor(ebmlElement.Payload)
	header.Until(idEBMLReadVersion)
	if header.AtEnd() {
		return ebml.Element{}, ebml.NewFormatError("Missing required element: EBMLReadVersion")
	}
	version, err := header.Current().ReadUint()
	if err != nil {
		return ebml.Element{}, err
	}
	if version > 1 {
		return ebml.Element{}, ebml.NewFormatError("Invalid EBML version: %d", version)
	}

	docType := ebml.NewCursor(ebmlElement.Payload)
	docType.Until(idDocType)
	if docType.AtEnd() {
		return ebml.Element{}, ebml.NewFormatError("Missing required element: DocType")
	}
	docTypeElement := docType.Current()
	if docTypeElement.Size > 16 {
		return ebml.Element{}, ebml.NewFormatError("Format not recognized: DocType too long")
	}
	doc, err := docTypeElement.ReadString()
	if err != nil {
		return ebml.Element{}, err
	}
	if !isKnownDocType(doc) {
		return ebml.Element{}, ebml.NewFormatError("Format not recognized: %q", doc)
	}

	outer.Until(idSegment)
	if outer.AtEnd() {
		return ebml.Element{}, ebml.NewFormatError("Missing required element: Segment")
	}
	return outer.Current(), nil
}

// isKnownDocType reports whether doc names "matroska" or "webm". The
// original reader compares with strncmp against a C string literal, so
// the comparison stops at the first zero byte in either operand;
// trailing padding after a zero byte never affects the outcome. doc's
// own stored length (already capped at 16 by the caller) is what
// bounds the comparison, not a fixed literal width.
func isKnownDocType(doc string) bool {
	if i := strings.IndexByte(doc, 0); i >= 0 {
		doc = doc[:i]
	}
	return doc == "matroska" || doc == "webm"
}
