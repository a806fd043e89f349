package events

// EventStatus é o vocabulário de status do lado do provedor de linha.
// "OPEN" é o único estado não-terminal; os dois resultados são absorventes.
type EventStatus string

const (
	EventOpen     EventStatus = "OPEN"
	EventTeamAWon EventStatus = "team A won"
	EventTeamBWon EventStatus = "team B won"
)

// ParseEventStatus valida um rótulo recebido de fora (query string, mensagem).
func ParseEventStatus(s string) (EventStatus, bool) {
	switch EventStatus(s) {
	case EventOpen, EventTeamAWon, EventTeamBWon:
		return EventStatus(s), true
	}
	return "", false
}

// Terminal informa se o status é absorvente (nenhuma transição posterior é válida).
func (s EventStatus) Terminal() bool {
	return s == EventTeamAWon || s == EventTeamBWon
}

// EventSnapshotEntry é a projeção de um evento dentro da mensagem de snapshot
// publicada no tópico "events_snapshot". Odds cruza o fio como string decimal.
type EventSnapshotEntry struct {
	ID       int64       `json:"id"`
	Odds     string      `json:"odds"`
	Deadline int64       `json:"deadline"`
	Status   EventStatus `json:"status"`
}
