package capacity

import (
	"context"
	"fmt"
	"sync"

	"github.com/oscied/orchestrator/cmn"
)

// MockAdapter is an in-process Adapter for tests and for any environment
// that does not name a configured cloud adapter: EnsureNumUnits simply
// grows or shrinks a slice of synthetic unit ids.
type MockAdapter struct {
	mu       sync.Mutex
	units    map[string][]UnitInfo // "environment/service" -> units
	errFail  map[string]bool       // unit id -> ResolveError should fail once more
	nextSeq  int
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{units: map[string][]UnitInfo{}, errFail: map[string]bool{}}
}

func key(environment, service string) string { return environment + "/" + service }

func (a *MockAdapter) Observe(_ context.Context, environment, service string) (ObservedUnits, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	units := append([]UnitInfo(nil), a.units[key(environment, service)]...)
	result := ObservedUnits{Service: service, ByState: map[UnitState]int{}}
	for _, u := range units {
		result.ByState[u.State]++
		result.Total++
	}
	result.Units = units
	return result, nil
}

func (a *MockAdapter) EnsureNumUnits(_ context.Context, environment, service string, count int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := key(environment, service)
	units := a.units[k]
	for len(units) < count {
		a.nextSeq++
		units = append(units, UnitInfo{ID: fmt.Sprintf("%s-unit-%d", k, a.nextSeq), State: UnitStarted})
	}
	if len(units) > count {
		units = units[:count]
	}
	a.units[k] = units
	return nil
}

func (a *MockAdapter) ResolveError(_ context.Context, environment, service, unitID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	units := a.units[key(environment, service)]
	for i, u := range units {
		if u.ID == unitID {
			units[i].State = UnitStarted
			return nil
		}
	}
	return cmn.NewMissingEntityRef("unit", unitID)
}

// SetUnitState lets a test force a unit into a given state, e.g. to exercise
// the heal path.
func (a *MockAdapter) SetUnitState(environment, service, unitID string, state UnitState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	units := a.units[key(environment, service)]
	for i, u := range units {
		if u.ID == unitID {
			units[i].State = state
			return
		}
	}
	a.units[key(environment, service)] = append(units, UnitInfo{ID: unitID, State: state})
}
