package repository

import (
	"context"

	"CropVol/internal/domain/models"
	domrepo "CropVol/internal/domain/repository"
	pkgkafka "CropVol/pkg/kafka"
)

// KafkaFitPublisher emits one message per fresh fit, keyed by region so a
// region's events stay ordered on one partition.
type KafkaFitPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaFitPublisher(p *pkgkafka.Producer, topic string) *KafkaFitPublisher {
	return &KafkaFitPublisher{producer: p, topic: topic}
}

func (p *KafkaFitPublisher) PublishFit(ctx context.Context, ev models.FitEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Dataset+"/"+ev.Region), ev)
}

func (p *KafkaFitPublisher) Close() error {
	return p.producer.Close()
}

// NoopFitPublisher is used when Kafka is disabled.
type NoopFitPublisher struct{}

func (NoopFitPublisher) PublishFit(context.Context, models.FitEvent) error { return nil }
func (NoopFitPublisher) Close() error                                   { return nil }

var (
	_ domrepo.FitPublisher = (*KafkaFitPublisher)(nil)
	_ domrepo.FitPublisher = NoopFitPublisher{}
)
