package capacity

import (
	"context"

	"github.com/oscied/orchestrator/cmn"
)

// MultiAdapter routes each call to the Adapter registered for that
// environment, letting one Controller reconcile environments backed by
// different clouds (spec §4.5: "Environment.type selects the cluster
// adapter"; cmd/orchestrator builds one sub-adapter per store.Environment.Type
// and registers it here).
type MultiAdapter struct {
	byEnvironment map[string]Adapter
}

func NewMultiAdapter() *MultiAdapter {
	return &MultiAdapter{byEnvironment: map[string]Adapter{}}
}

func (m *MultiAdapter) Register(environment string, a Adapter) {
	m.byEnvironment[environment] = a
}

func (m *MultiAdapter) resolve(environment string) (Adapter, error) {
	a, ok := m.byEnvironment[environment]
	if !ok {
		return nil, cmn.NewMissingEntityRef("environment", environment)
	}
	return a, nil
}

func (m *MultiAdapter) Observe(ctx context.Context, environment, service string) (ObservedUnits, error) {
	a, err := m.resolve(environment)
	if err != nil {
		return ObservedUnits{}, err
	}
	return a.Observe(ctx, environment, service)
}

func (m *MultiAdapter) EnsureNumUnits(ctx context.Context, environment, service string, count int) error {
	a, err := m.resolve(environment)
	if err != nil {
		return err
	}
	return a.EnsureNumUnits(ctx, environment, service, count)
}

func (m *MultiAdapter) ResolveError(ctx context.Context, environment, service, unitID string) error {
	a, err := m.resolve(environment)
	if err != nil {
		return err
	}
	return a.ResolveError(ctx, environment, service, unitID)
}
