package engine

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const copyChunkSize = 32 * 1024

// limitedReader throttles reads to a bytes-per-second budget.
type limitedReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

// newLimitedReader wraps r with a bytes/sec limit. A limit of zero returns r
// unchanged.
func newLimitedReader(ctx context.Context, r io.Reader, bytesPerSec int) io.Reader {
	if bytesPerSec <= 0 {
		return r
	}
	burst := bytesPerSec
	if burst < copyChunkSize {
		burst = copyChunkSize
	}
	return &limitedReader{
		ctx:     ctx,
		r:       r,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
	}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if len(p) > copyChunkSize {
		p = p[:copyChunkSize]
	}
	n, err := l.r.Read(p)
	if n > 0 {
		if waitErr := l.limiter.WaitN(l.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

// copyStream copies with a fixed chunk size so the limiter sees steady
// request sizes.
func copyStream(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyChunkSize)
	return io.CopyBuffer(dst, src, buf)
}
