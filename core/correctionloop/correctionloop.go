// Package correctionloop runs the background scanners that continuously
// sweep the store for suspect bytes and hand them to the corrector.
package correctionloop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parityfleet/paritynode/core/corrector"
	"github.com/parityfleet/paritynode/core/store"
)

// Scanner repeatedly walks the store from index 0 to the end, repairing
// any suspect byte it finds before moving on, then sleeps between passes
// to bound CPU usage.
type Scanner struct {
	id           int
	store        *store.Store
	corrector    *corrector.Corrector
	retryDelay   time.Duration
	passInterval time.Duration
	log          *zap.SugaredLogger
}

func New(id int, s *store.Store, c *corrector.Corrector, retryDelay, passInterval time.Duration, log *zap.SugaredLogger) *Scanner {
	return &Scanner{
		id:           id,
		store:        s,
		corrector:    c,
		retryDelay:   retryDelay,
		passInterval: passInterval,
		log:          log,
	}
}

// Run scans forever until ctx is canceled. Multiple scanners racing on the
// same suspect index are coalesced by the corrector's ticket mechanism, so
// only one set of peer queries is ever issued per repair.
func (s *Scanner) Run(ctx context.Context) {
	for {
		for i := 0; i < s.store.Len(); i++ {
			if ctx.Err() != nil {
				return
			}
			s.repairIfSuspect(ctx, i)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.passInterval):
		}
	}
}

func (s *Scanner) repairIfSuspect(ctx context.Context, i int) {
	if s.store.IsParityOk(i) {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if s.corrector.TryCorrect(i) {
			return
		}
		if s.corrector.IsCorrecting(i) {
			// Another scanner already dispatched peer queries for this
			// index; nothing more for this scanner to do here.
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}
