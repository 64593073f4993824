package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/paklift/service-ride/internal/application"
	"github.com/paklift/service-ride/internal/events/schema"
	"github.com/paklift/service-ride/internal/platform/apperr"
	"github.com/paklift/service-ride/internal/platform/kafka"
)

// LocationUpdater is the slice of the ride service the consumer drives.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, rideID uuid.UUID, req application.UpdateLocationRequest) (*application.CurrentLocationDTO, error)
}

// LocationEventConsumer applies driver location reports published by the driver app.
type LocationEventConsumer struct {
	consumer *kafka.Consumer
	service  LocationUpdater
	logger   *zap.Logger
}

// NewLocationEventConsumer creates a new LocationEventConsumer.
func NewLocationEventConsumer(
	brokers []string,
	groupID string,
	service LocationUpdater,
	logger *zap.Logger,
) *LocationEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, schema.TopicRideLocations, logger)
	return &LocationEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming location reports. This blocks until the context is cancelled.
func (c *LocationEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *LocationEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *LocationEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from location topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case schema.RideLocationReported:
		return c.handleLocationReported(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled location event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *LocationEventConsumer) handleLocationReported(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt schema.LocationReportedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse LocationReportedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	lat, lng := evt.Latitude, evt.Longitude
	req := application.UpdateLocationRequest{Latitude: &lat, Longitude: &lng}
	if evt.Timestamp > 0 {
		ts := evt.Timestamp
		req.Timestamp = &ts
	}

	if _, err := c.service.UpdateLocation(ctx, evt.RideID, req); err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindStorage, apperr.KindConflict, apperr.KindInternal:
			c.logger.Error("failed to apply location report",
				zap.String("ride_id", evt.RideID.String()),
				zap.Error(err),
			)
			return err
		default:
			// Invalid coordinates or an unknown or finished ride will never succeed.
			c.logger.Warn("dropping location report",
				zap.String("ride_id", evt.RideID.String()),
				zap.Error(err),
			)
			return nil
		}
	}

	c.logger.Debug("location report applied",
		zap.String("ride_id", evt.RideID.String()),
	)
	return nil
}
