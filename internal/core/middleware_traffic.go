package core

import (
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// compressionMinSize is the smallest body gzhttp will compress. Error
// envelopes and single-reading responses usually stay below it.
const compressionMinSize = 512

// CompressionMiddleware gzips responses for clients that send
// Accept-Encoding: gzip. Bodies shorter than minSize are written as-is.
func CompressionMiddleware(minSize int) (func(http.Handler) http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(minSize))
	if err != nil {
		return nil, fmt.Errorf("creating gzip wrapper: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}
