package events

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	stan "github.com/nats-io/stan.go"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

// Event subjects
const (
	SubjectBatchCompleted = "batch.completed"
	SubjectBatchDeleted   = "batch.deleted"
)

// BatchEvent is the payload published for batch lifecycle events
type BatchEvent struct {
	EventType  string    `json:"eventType"`
	BatchID    string    `json:"batchId"`
	Status     string    `json:"status,omitempty"`
	ItemCount  int       `json:"itemCount"`
	ErrorCount int       `json:"errorCount"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits batch lifecycle events over NATS Streaming
type Publisher struct {
	conn   stan.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS Streaming. The connection parameters come
// from NATS_URL and NATS_CLUSTER_ID.
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	clusterID := os.Getenv("NATS_CLUSTER_ID")
	if clusterID == "" {
		clusterID = "test-cluster"
	}

	clientID := fmt.Sprintf("catalog-import-%s", uuid.New().String()[:8])
	conn, err := stan.Connect(clusterID, clientID, stan.NatsURL(natsURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "batch-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishBatchCompleted publishes a batch.completed event
func (p *Publisher) PublishBatchCompleted(batch *models.Batch) {
	p.publish(SubjectBatchCompleted, BatchEvent{
		EventType:  SubjectBatchCompleted,
		BatchID:    batch.ID.String(),
		Status:     string(batch.Status),
		ItemCount:  batch.ItemCount,
		ErrorCount: batch.ErrorCount,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishBatchDeleted publishes a batch.deleted event
func (p *Publisher) PublishBatchDeleted(batchID uuid.UUID) {
	p.publish(SubjectBatchDeleted, BatchEvent{
		EventType:  SubjectBatchDeleted,
		BatchID:    batchID.String(),
		OccurredAt: time.Now().UTC(),
	})
}

// publish sends the event asynchronously so request handling never blocks
// on the broker.
func (p *Publisher) publish(subject string, event BatchEvent) {
	go func() {
		data, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to encode batch event")
			return
		}

		if err := p.conn.Publish(subject, data); err != nil {
			p.logger.WithFields(logrus.Fields{
				"subject": subject,
				"batchId": event.BatchID,
			}).WithError(err).Error("Failed to publish batch event")
			return
		}

		p.logger.WithFields(logrus.Fields{
			"subject": subject,
			"batchId": event.BatchID,
		}).Info("Batch event published")
	}()
}
