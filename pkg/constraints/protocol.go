package constraints

// Action identifies the kind of queue event pushed to stream clients.
type Action string

const (
	ActionEnqueued  Action = "enqueued"
	ActionSynced    Action = "synced"
	ActionDuplicate Action = "duplicate"
	ActionFailed    Action = "failed"
	ActionCount     Action = "count"
	ActionPing      Action = "ping"
)

const (
	// OpCheckin records an attendance check-in at the kiosk.
	OpCheckin = "checkin"
	// OpCheckout records a checkout (e.g. child pickup).
	OpCheckout = "checkout"
	// OpCorrection amends a previously submitted check-in and is
	// order-sensitive relative to it.
	OpCorrection = "correction"
	// OpGuest registers a walk-in guest alongside their check-in.
	OpGuest = "guest"
)
