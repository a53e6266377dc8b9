package metrics

// QueueObserver receives queue and stream signals from the services without
// binding them to a metrics backend.
type QueueObserver interface {
	SetQueueDepth(n int)
	IncStreamClients()
	DecStreamClients()
	RecordPush()
	RecordSync(outcome string)
}

const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeFailure   = "failure"
	OutcomeTerminal  = "terminal"
)
