package capacity

import (
	"context"
	"strings"

	compute "google.golang.org/api/compute/v1"

	"github.com/oscied/orchestrator/cmn"
)

// GCEAdapter manages worker units as members of a Google Compute Engine
// managed instance group, one per (environment, service) pair, reusing
// google.golang.org/api — a direct teacher dependency originally wired only
// for the GCS backend's auth transport (ais/backend), here driving the
// Compute Engine API's InstanceGroupManagers surface instead.
type GCEAdapter struct {
	svc     *compute.Service
	project string
	zone    string
}

func NewGCEAdapter(ctx context.Context, project, zone string) (*GCEAdapter, error) {
	svc, err := compute.NewService(ctx)
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to create compute engine client")
	}
	return &GCEAdapter{svc: svc, project: project, zone: zone}, nil
}

// groupName follows the same "oscied-<environment>-<service>" convention
// the other adapters use for tagging/naming the fleet they manage.
func groupName(environment, service string) string {
	return "oscied-" + environment + "-" + service
}

func unitStateFromGCE(status string) UnitState {
	switch strings.ToUpper(status) {
	case "RUNNING":
		return UnitStarted
	case "PROVISIONING", "STAGING":
		return UnitPending
	default:
		return UnitUnknown
	}
}

func (a *GCEAdapter) Observe(ctx context.Context, environment, service string) (ObservedUnits, error) {
	name := groupName(environment, service)
	result := ObservedUnits{Service: service, ByState: map[UnitState]int{}}
	err := a.svc.InstanceGroupManagers.ListManagedInstances(a.project, a.zone, name).
		Pages(ctx, func(page *compute.InstanceGroupManagersListManagedInstancesResponse) error {
			for _, inst := range page.ManagedInstances {
				st := unitStateFromGCE(inst.CurrentAction)
				if inst.InstanceStatus == "RUNNING" {
					st = UnitStarted
				} else if inst.InstanceStatus == "" && inst.CurrentAction != "NONE" {
					st = UnitPending
				}
				result.ByState[st]++
				result.Units = append(result.Units, UnitInfo{ID: inst.Instance, State: st})
				result.Total++
			}
			return nil
		})
	if err != nil {
		return ObservedUnits{}, cmn.Wrap(err, cmn.KindTransient, "failed to list managed instances")
	}
	return result, nil
}

// EnsureNumUnits resizes the managed instance group to count, the GCE
// analogue of the EC2 adapter's RunInstances/TerminateInstances pair: GCE
// handles both growth and shrink through the same Resize call.
func (a *GCEAdapter) EnsureNumUnits(ctx context.Context, environment, service string, count int) error {
	name := groupName(environment, service)
	op, err := a.svc.InstanceGroupManagers.Resize(a.project, a.zone, name, int64(count)).Context(ctx).Do()
	if err != nil {
		return cmn.Wrap(err, cmn.KindTransient, "failed to resize instance group "+name)
	}
	if op.Error != nil && len(op.Error.Errors) > 0 {
		return cmn.NewTransient("resize of " + name + " reported: " + op.Error.Errors[0].Message)
	}
	return nil
}

// ResolveError recreates the named instance within its managed instance
// group, GCE's equivalent of the EC2 adapter's single-attempt reboot.
func (a *GCEAdapter) ResolveError(ctx context.Context, environment, service, unitID string) error {
	name := groupName(environment, service)
	_, err := a.svc.InstanceGroupManagers.RecreateInstances(a.project, a.zone, name,
		&compute.InstanceGroupManagersRecreateInstancesRequest{Instances: []string{unitID}}).Context(ctx).Do()
	if err != nil {
		return cmn.Wrap(err, cmn.KindTransient, "failed to recreate instance "+unitID)
	}
	return nil
}
