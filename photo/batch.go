package photo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// batchConcurrency bounds the number of images decoded at once; decoding
// a large capture briefly monopolizes a core, and handhelds have few.
const batchConcurrency = 4

// Outcome pairs one image's compression result with its error, if any.
// Order matches the input order of CompressAll.
type Outcome struct {
	Result Result
	Err    error
}

// CompressAll processes the given images independently and concurrently.
// One undecodable image does not block the rest — its Outcome carries
// the error and every other image is still compressed. The call returns
// once all outstanding compressions have completed, or earlier if ctx is
// canceled (pending images then carry the context error).
func (p *Pipeline) CompressAll(ctx context.Context, raws [][]byte) []Outcome {
	outcomes := make([]Outcome, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Err: err}
				return nil
			}
			res, err := p.Compress(raw)
			outcomes[i] = Outcome{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
