package dispatch

import "time"

// ComputeETA mirrors the original worker pool's per-progress-callback ETA
// formula (TransformWorker.py: eta_time = elapsed*(1-ratio)/ratio) — a
// feature the distilled spec.md omits but the original implementation
// carries on every progress update (see SPEC_FULL.md's supplemented
// features). percent is 0-100; elapsed is time already spent. A percent of
// 0 (no progress yet) has no meaningful ETA and returns 0.
func ComputeETA(elapsed time.Duration, percent float64) time.Duration {
	if percent <= 0 {
		return 0
	}
	return time.Duration(float64(elapsed) * (100 - percent) / percent)
}
