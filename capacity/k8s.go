package capacity

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/oscied/orchestrator/cmn"
)

// K8sAdapter treats a Kubernetes Deployment as a pool of worker units: one
// Deployment per (environment, service), its Spec.Replicas as the desired
// count, and its backing Pods as units. Reuses k8s.io/client-go,
// k8s.io/api and k8s.io/apimachinery, teacher dependencies originally wired
// only for bootstrapping cluster membership in a Kubernetes deployment
// (devtools/tutils.ClusterTypeK8s), repurposed here as the actual control
// surface for that deployment mode rather than just a membership probe.
type K8sAdapter struct {
	client    kubernetes.Interface
	namespace string
}

func NewK8sAdapter(client kubernetes.Interface, namespace string) *K8sAdapter {
	return &K8sAdapter{client: client, namespace: namespace}
}

func (a *K8sAdapter) Observe(ctx context.Context, environment, service string) (ObservedUnits, error) {
	name := groupName(environment, service)
	result := ObservedUnits{Service: service, ByState: map[UnitState]int{}}
	pods, err := a.client.CoreV1().Pods(a.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "oscied.io/deployment=" + name,
	})
	if err != nil {
		return ObservedUnits{}, cmn.Wrap(err, cmn.KindTransient, "failed to list pods for "+name)
	}
	for _, pod := range pods.Items {
		st := unitStateFromPodPhase(pod.Status.Phase)
		result.ByState[st]++
		result.Units = append(result.Units, UnitInfo{ID: pod.Name, State: st})
		result.Total++
	}
	return result, nil
}

func unitStateFromPodPhase(phase corev1.PodPhase) UnitState {
	switch phase {
	case corev1.PodRunning:
		return UnitStarted
	case corev1.PodPending:
		return UnitPending
	case corev1.PodFailed, corev1.PodUnknown:
		return UnitError
	default:
		return UnitUnknown
	}
}

func (a *K8sAdapter) EnsureNumUnits(ctx context.Context, environment, service string, count int) error {
	name := groupName(environment, service)
	deployments := a.client.AppsV1().Deployments(a.namespace)
	dep, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return cmn.Wrap(err, cmn.KindTransient, "failed to load deployment "+name)
	}
	replicas := int32(count)
	dep.Spec.Replicas = &replicas
	if _, err := deployments.Update(ctx, dep, metav1.UpdateOptions{}); err != nil {
		return cmn.Wrap(err, cmn.KindTransient, "failed to scale deployment "+name)
	}
	return nil
}

// ResolveError evicts the named pod so its Deployment's controller replaces
// it, the Kubernetes analogue of the EC2/GCE adapters' single best-effort
// heal attempt.
func (a *K8sAdapter) ResolveError(ctx context.Context, _, _, unitID string) error {
	err := a.client.CoreV1().Pods(a.namespace).Delete(ctx, unitID, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return cmn.Wrap(err, cmn.KindTransient, "failed to evict pod "+unitID)
	}
	return nil
}
