// Package snapshot classifies stored fetch snapshots by their leading bytes.
package snapshot

import (
	"fmt"
	"io"
	"os"
)

// Format is the detected snapshot container format.
type Format int

const (
	// Empty is a zero-byte snapshot: no fetch has succeeded yet, or the
	// last attempt failed at the transport level.
	Empty Format = iota
	// LegacyColumnar is the prior columnar binary container, recognized by
	// its magic number.
	LegacyColumnar
	// HttpCapture is any other non-empty content, assumed to be the current
	// capture container. Unknown content is deliberately never rejected
	// here so future capture revisions keep flowing to the capture reader.
	HttpCapture
)

func (f Format) String() string {
	switch f {
	case Empty:
		return "empty"
	case LegacyColumnar:
		return "legacy-columnar"
	default:
		return "http-capture"
	}
}

// legacyMagic is the legacy columnar container's leading signature.
var legacyMagic = []byte("PAR1")

// Classify inspects the file at path and returns its snapshot format.
// It reads at most the magic-number prefix.
func Classify(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Empty, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Empty, fmt.Errorf("stat snapshot: %w", err)
	}
	if st.Size() == 0 {
		return Empty, nil
	}

	head := make([]byte, len(legacyMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		// Shorter than the magic: not legacy, defer to the capture reader.
		return HttpCapture, nil
	}
	if string(head) == string(legacyMagic) {
		return LegacyColumnar, nil
	}
	return HttpCapture, nil
}
