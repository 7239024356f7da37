package eddn

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"unicode/utf8"
)

// maxDocumentSize bounds the inflated size of a single frame.
const maxDocumentSize = 8 << 20

// DecodeFrame inflates a zlib-compressed relay frame into its JSON document.
// Any failure wraps ErrCorruptFrame.
func DecodeFrame(frame []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	defer func() { _ = r.Close() }()

	doc, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	if len(doc) > maxDocumentSize {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrCorruptFrame, maxDocumentSize)
	}
	if !utf8.Valid(doc) {
		return nil, fmt.Errorf("%w: document is not valid UTF-8", ErrCorruptFrame)
	}
	return doc, nil
}
