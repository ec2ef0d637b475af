package broker

import (
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// RunCompletedEvent announces a finished indexing run so downstream
// consumers can react to a refreshed dataset.
type RunCompletedEvent struct {
	ID                 string         `json:"id"`
	Source             string         `json:"source"`
	FinishedAt         time.Time      `json:"finished_at"`
	ImportedFacilities int            `json:"imported_facilities"`
	ImportedCategories int            `json:"imported_categories"`
	ImportedLocations  int            `json:"imported_locations"`
	Skipped            map[string]int `json:"skipped"`
	Status             string         `json:"status"`
}

func PublishRunCompleted(producer sarama.SyncProducer, topic string, event RunCompletedEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	bytes, err := jsoniter.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID),
		Value: sarama.ByteEncoder(bytes),
	})
	return err
}
