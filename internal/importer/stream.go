package importer

import (
	"context"
	"io"

	"github.com/fireflybt/fireflybt/internal/model"
)

// Result is one element of a parse stream: either a transaction or the
// terminal error that ended the stream.
type Result struct {
	Transaction model.Transaction
	Err         error
}

// ParseStream parses the statement in a background goroutine and delivers
// rows on a bounded channel, so a consumer can display transactions as they
// are parsed. The channel is closed when the statement is exhausted, a
// parse error occurs (delivered as the final Result), or ctx is canceled.
// The caller keeps ownership of r and closes it once the stream ends.
func (p *BTParser) ParseStream(ctx context.Context, r io.Reader, buffer int) <-chan Result {
	out := make(chan Result, buffer)

	go func() {
		defer close(out)

		err := p.parse(r, func(t model.Transaction) error {
			select {
			case out <- Result{Transaction: t}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

		if err != nil && ctx.Err() == nil {
			select {
			case out <- Result{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out
}
