package fetch

import (
	"context"
	"fmt"
	"io"
)

// Response body with a running byte budget. It is single use: once closed
// the underlying request is cancelled.
type body struct {
	rc        io.ReadCloser
	remaining int64
	limit     int64

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		// hand out only what fit into the budget
		n += int(b.remaining)
		b.remaining = 0
		return n, fmt.Errorf("fetch: %w: more than %d bytes read", ErrPayloadTooLarge, b.limit)
	}
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("fetch: %w", classify(b.parent, b.ctx, err))
	}
	return n, err
}

func (b *body) Close() error {
	defer b.cancel()
	return b.rc.Close()
}
