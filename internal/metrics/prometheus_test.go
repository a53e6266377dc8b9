package metrics

import (
	"testing"
)

func TestPrometheusObserver(t *testing.T) {
	obs := NewPrometheusObserver()

	// Just call methods to ensure no panic
	obs.SetQueueDepth(3)
	obs.IncStreamClients()
	obs.DecStreamClients()
	obs.RecordPush()
	obs.RecordSync(OutcomeSuccess)
	obs.RecordSync(OutcomeDuplicate)
}
