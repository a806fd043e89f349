package events

// StatusUpdate é o delta publicado no tópico "event_status_updates" a cada
// transição de status confirmada no provedor de linha.
type StatusUpdate struct {
	EventID   int64       `json:"event_id"`
	NewStatus EventStatus `json:"new_status"`
}
