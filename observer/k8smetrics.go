package observer

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/client/clientset/versioned/typed/metrics/v1beta1"

	"github.com/oscied/orchestrator/cmn"
)

// NodeMetrics is one pod's CPU/memory reading from the Kubernetes metrics
// API.
type NodeMetrics struct {
	PodName string
	CPUNano int64
	MemByte int64
}

// K8sMetricsSource lists pod CPU/mem readings for deployments managed by
// capacity.K8sAdapter, reusing k8s.io/metrics — a direct teacher dependency
// otherwise unused once the erasure-coding and rebalance stack is dropped
// (see DESIGN.md). Observer.Tick does not call it, and Sample carries no
// pod metrics.
type K8sMetricsSource struct {
	client    metricsv1beta1.MetricsV1beta1Interface
	namespace string
}

func NewK8sMetricsSource(client metricsv1beta1.MetricsV1beta1Interface, namespace string) *K8sMetricsSource {
	return &K8sMetricsSource{client: client, namespace: namespace}
}

// Sample lists current pod metrics for the named deployment's pods,
// identified by the same "oscied.io/deployment" label capacity.K8sAdapter
// uses for Observe.
func (k *K8sMetricsSource) Sample(ctx context.Context, environment, service string) ([]NodeMetrics, error) {
	name := "oscied-" + environment + "-" + service
	list, err := k.client.PodMetricses(k.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "oscied.io/deployment=" + name,
	})
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindTransient, "failed to list pod metrics for "+name)
	}
	out := make([]NodeMetrics, 0, len(list.Items))
	for _, pm := range list.Items {
		var cpu, mem int64
		for _, c := range pm.Containers {
			cpu += c.Usage.Cpu().MilliValue() * 1_000_000 // milli-cores -> nanocores
			mem += c.Usage.Memory().Value()
		}
		out = append(out, NodeMetrics{PodName: pm.Name, CPUNano: cpu, MemByte: mem})
	}
	return out, nil
}
