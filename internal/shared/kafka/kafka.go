package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter cria um writer com entrega persistente (acks de todas as réplicas).
func NewWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
	}
}

// NewReader cria um reader de consumer group com limite de mensagens em voo.
// prefetch limita o buffer interno pra não acumular trabalho não confirmado.
func NewReader(brokers string, topic string, groupID string, prefetch int) *kafka.Reader {
	if prefetch <= 0 {
		prefetch = 10
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:       strings.Split(brokers, ","),
		Topic:         topic,
		GroupID:       groupID,
		MinBytes:      1,
		MaxBytes:      10e6,
		QueueCapacity: prefetch,
	})
}
