package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeReviewCreated   = "review.created"
	TypeReviewUpdated   = "review.updated"
	TypeReviewDeleted   = "review.deleted"
	TypeReviewModerated = "review.moderated"
	TypeReviewResponded = "review.responded"
	TypeReviewReported  = "review.reported"
	TypeRatingRecompute = "rating.recomputed"

	AggregateReview = "review"
	AggregateRating = "rating"

	source = "review-service"

	// MetaSubjectID хранит получателя отзыва, по нему партиционируются сообщения.
	MetaSubjectID = "subject_id"
)

// Event оборачивает доменное событие, публикуемое в Kafka.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// New собирает событие с новым ID.
func New(eventType, aggregateType string, aggregateID uuid.UUID, at time.Time, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID.String(),
		AggregateType: aggregateType,
		Version:       1,
		Timestamp:     at.UTC(),
		Source:        source,
		Data:          raw,
	}, nil
}

// WithMetadata добавляет пару ключ-значение в метаданные.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// PartitionKey возвращает ключ сообщения: получатель отзыва, иначе ID агрегата.
func (e *Event) PartitionKey() string {
	if subject := e.Metadata[MetaSubjectID]; subject != "" {
		return subject
	}
	return e.AggregateID
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
