package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/betcore/line-platform/pkg/contracts/events"
)

// chave única: o snapshot inteiro mora num valor só, então o replace é atômico
// e nenhum leitor enxerga um mapa pela metade
const snapshotKey = "available_events"

// EventsCache guarda a visão corrente da linha no Redis, com TTL.
// Cache expirado ou vazio significa "nenhum evento aberto", nunca erro:
// um publisher morto não pode deixar apostadores vendo uma linha velha pra sempre.
type EventsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewEventsCache cria o cache de snapshot com TTL configurável.
func NewEventsCache(c *redis.Client, ttl time.Duration) *EventsCache {
	return &EventsCache{Client: c, TTL: ttl}
}

// Replace substitui a visão inteira pelo snapshot recebido e renova o TTL.
func (c *EventsCache) Replace(ctx context.Context, entries []events.EventSnapshotEntry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, snapshotKey, b, c.TTL).Err()
}

// Snapshot retorna a visão corrente. ok=false quando não há snapshot vivo
// (nunca recebido ou expirado pelo TTL).
func (c *EventsCache) Snapshot(ctx context.Context) ([]events.EventSnapshotEntry, bool, error) {
	b, err := c.Client.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entries []events.EventSnapshotEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}
