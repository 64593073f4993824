//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/paklift/service-ride/internal/application"
	"github.com/paklift/service-ride/internal/domain/geo"
	rideDomain "github.com/paklift/service-ride/internal/domain/ride"
	rideEvents "github.com/paklift/service-ride/internal/events"
	"github.com/paklift/service-ride/internal/events/schema"
	"github.com/paklift/service-ride/internal/platform/kafka"
	"github.com/paklift/service-ride/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// rideStack holds wired-up ride service components.
type rideStack struct {
	Service         *application.RideService
	Routes          *application.RouteService
	Matching        *application.MatchingService
	Consumer        *rideEvents.LocationEventConsumer
	CleanupProducer func()
}

// staticGeocoder resolves a fixed set of places without network access.
type staticGeocoder map[string]geo.Coordinate

func (g staticGeocoder) Resolve(_ context.Context, placeName string) (geo.Coordinate, error) {
	if c, ok := g[placeName]; ok {
		return c, nil
	}
	return geo.Coordinate{}, fmt.Errorf("no fixture for %q", placeName)
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_rides",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_rides sslmode=disable", pgHost, pgPort.Port())

	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.RideModel{},
		&repository.RouteModel{},
		&repository.DriverModel{},
		&repository.VehicleModel{},
	))

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, schema.TopicRideEvents, schema.TopicRouteEvents, schema.TopicRideLocations)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupRideStack wires up the ride, route and matching services against real storage.
func setupRideStack(t *testing.T, db *gorm.DB, brokers []string, geocoder geo.Geocoder) *rideStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	rideRepo := repository.NewGormRideRepository(db)
	routeRepo := repository.NewGormRouteRepository(db)
	directory := repository.NewGormDriverDirectory(db)
	producer := kafka.NewProducer(brokers, logger)

	rideSvc := application.NewRideService(rideRepo, routeRepo, geocoder, rideDomain.NewFuelCostFareStrategy(28),
		producer, logger, application.RideServiceOptions{GeocodeTimeout: 5 * time.Second})
	routeSvc := application.NewRouteService(routeRepo, directory, geocoder, producer, logger, 5*time.Second)

	groupID := fmt.Sprintf("test-ride-%s", uuid.New().String()[:8])
	consumer := rideEvents.NewLocationEventConsumer(brokers, groupID, rideSvc, logger)

	return &rideStack{
		Service:         rideSvc,
		Routes:          routeSvc,
		Matching:        application.NewMatchingService(routeRepo, logger),
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedDriver inserts a driver with one vehicle and returns both ids.
func seedDriver(t *testing.T, db *gorm.DB, seats int) (uuid.UUID, uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	driver := repository.DriverModel{ID: uuid.New(), Name: "Test Driver", Email: uuid.NewString() + "@example.com", CreatedAt: now}
	require.NoError(t, db.Create(&driver).Error, "failed to seed driver")
	vehicle := repository.VehicleModel{
		ID:            uuid.New(),
		DriverID:      driver.ID,
		NumberPlate:   "LEA-1234",
		NumberOfSeats: seats,
		IsApproved:    true,
		CreatedAt:     now,
	}
	require.NoError(t, db.Create(&vehicle).Error, "failed to seed vehicle")
	return driver.ID, vehicle.ID
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForRide polls the rides table until cond holds.
func waitForRide(t *testing.T, db *gorm.DB, rideID uuid.UUID, timeout time.Duration, cond func(repository.RideModel) bool) repository.RideModel {
	t.Helper()
	var result repository.RideModel
	require.Eventually(t, func() bool {
		var model repository.RideModel
		if err := db.Where("id = ?", rideID).First(&model).Error; err != nil {
			return false
		}
		if cond(model) {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "ride %s never reached the expected state", rideID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type and subject.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType, subject string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && ce.Subject == subject {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	time.Sleep(1 * time.Second)
}
