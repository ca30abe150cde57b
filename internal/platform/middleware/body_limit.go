package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// DefaultBodyLimit applies when the configured limit is empty or malformed.
const DefaultBodyLimit int64 = 64 << 10

// BodyLimit caps request bodies. limit is a human-readable size such as
// "64KiB" or "1MB". Oversized bodies get a 413, either up front from
// Content-Length or on the read that crosses the limit.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes := parseLimit(limit)
	tooLarge := echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds %s", humanize.IBytes(uint64(maxBytes))))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > maxBytes {
				return tooLarge
			}
			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: maxBytes, err: tooLarge}
			return next(c)
		}
	}
}

// limitedReadCloser fails with err once more than remaining bytes are read.
type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	err       error
}

func (r *limitedReadCloser) Read(p []byte) (int, error) {
	if r.remaining < 0 {
		return 0, r.err
	}
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err := r.ReadCloser.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		return 0, r.err
	}
	return n, err
}

func parseLimit(s string) int64 {
	n, err := humanize.ParseBytes(s)
	if err != nil || n == 0 {
		return DefaultBodyLimit
	}
	return int64(n)
}
