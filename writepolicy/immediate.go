package writepolicy

import (
	"context"

	"github.com/krisalay/swrcache/types"
)

// Immediate mutates every key synchronously inside OnWrite.
type Immediate struct {
	target Mutator
}

func NewImmediate(target Mutator) *Immediate {
	return &Immediate{target: target}
}

func (p *Immediate) OnWrite(ctx context.Context, keys ...types.Key) {
	for _, k := range keys {
		p.target.Mutate(ctx, k)
	}
}

// Close has nothing to release.
func (p *Immediate) Close() {}
