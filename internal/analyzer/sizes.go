package analyzer

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// countingWriter counts bytes written through it and discards them.
type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// compressedSize returns the size of content after compression with the
// given algorithm. An empty algorithm defaults to gzip.
func compressedSize(content []byte, algorithm string) (int64, error) {
	var counter countingWriter
	var compressor io.WriteCloser

	switch algorithm {
	case "", "gzip":
		compressor = gzip.NewWriter(&counter)
	case "brotli":
		compressor = brotli.NewWriter(&counter)
	default:
		return 0, fmt.Errorf("unsupported compression algorithm %q", algorithm)
	}

	if _, err := compressor.Write(content); err != nil {
		return 0, err
	}
	if err := compressor.Close(); err != nil {
		return 0, err
	}
	return counter.n, nil
}
