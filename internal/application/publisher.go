package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paklift/service-ride/internal/domain/geo"
	"github.com/paklift/service-ride/internal/events/schema"
	"github.com/paklift/service-ride/internal/platform/kafka"
)

// EventPublisher publishes integration events. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// publishEvent wraps data in a CloudEvent and publishes it. Failures are logged
// and never fail the calling use case.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, topic, eventType, subject string, data interface{}) {
	if publisher == nil {
		return
	}
	ce, err := kafka.NewCloudEvent(schema.Source, eventType, data)
	if err != nil {
		logger.Error("failed to build cloud event",
			zap.String("type", eventType),
			zap.Error(err),
		)
		return
	}
	ce.Subject = subject

	if err := publisher.PublishEvent(ctx, topic, ce); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", eventType),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

// geocodeWithTimeout resolves placeName within timeout.
func geocodeWithTimeout(ctx context.Context, geocoder geo.Geocoder, timeout time.Duration, placeName string) (geo.Coordinate, error) {
	if geocoder == nil {
		return geo.Coordinate{}, fmt.Errorf("geocoding is not configured")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return geocoder.Resolve(ctx, placeName)
}
