package cmn

import (
	"sync"

	"github.com/pkg/errors"
)

// Runner is a long-lived control loop the daemon starts and stops as a
// unit: the HTTP server, the capacity controller's tick loop, the
// observer's sampling loop, the media janitor. Grounded on the teacher's
// own cos.Runner contract (ais/daemon.go's rungroup: every runner exposes
// Name/Run/Stop and rungroup.run fans them out and tears them all down the
// moment any one of them exits).
type Runner interface {
	Name() string
	Run() error
	Stop(err error)
}

// RunGroup starts a fixed set of named Runners together and stops every
// other one the moment any single one exits, exactly like
// ais/daemon.go's rungroup.
type RunGroup struct {
	mu sync.Mutex
	rs map[string]Runner
}

func NewRunGroup() *RunGroup { return &RunGroup{rs: map[string]Runner{}} }

func (g *RunGroup) Add(r Runner) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.rs[r.Name()]; exists {
		panic("cmn: duplicate runner name " + r.Name())
	}
	g.rs[r.Name()] = r
}

// Run starts every registered runner and blocks until the first one
// returns, then stops the rest and returns that first error.
func (g *RunGroup) Run() error {
	errCh := make(chan error, len(g.rs))
	for _, r := range g.rs {
		go func(r Runner) {
			errCh <- errors.Wrapf(r.Run(), "runner %q exited", r.Name())
		}(r)
	}
	first := <-errCh
	for _, r := range g.rs {
		r.Stop(first)
	}
	for i := 1; i < len(g.rs); i++ {
		<-errCh
	}
	return first
}
