package topics

const (
	// Snapshot completo da linha de eventos (full replace)
	EventsSnapshot = "events_snapshot"

	// Deltas de resolução de eventos
	EventStatusUpdates = "event_status_updates"
)
