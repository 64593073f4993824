package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/paklift/service-ride/internal/domain/geo"
	rideDomain "github.com/paklift/service-ride/internal/domain/ride"
	"github.com/paklift/service-ride/internal/platform/apperr"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

var rideColumns = []string{
	"id", "route_id", "origin", "destination", "path_points", "current_lat", "current_lng", "current_at",
	"total_fare", "total_seats", "available_seats", "distance", "duration", "status", "passengers",
	"version", "created_at", "updated_at", "ended_at",
}

func TestRideRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormRideRepository(db)

	id := uuid.New()
	passenger := uuid.New()
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "rides" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(rideColumns).AddRow(
			id.String(), nil,
			[]byte(`{"name":"Lahore","coordinates":{"latitude":31.52,"longitude":74.35}}`),
			[]byte(`{"name":"Islamabad","coordinates":{"latitude":33.68,"longitude":73.04}}`),
			[]byte(`[]`), 31.6, 74.3, created.Add(time.Minute),
			3000.0, 4, 3, "375 km", "4 hours", "active",
			[]byte(`["`+passenger.String()+`"]`),
			int64(2), created, created.Add(time.Minute), nil,
		))

	r, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, r.ID())
	assert.Equal(t, "Lahore", r.Origin().Name)
	assert.Equal(t, 33.68, r.Destination().Coordinates.Latitude)
	assert.Equal(t, rideDomain.StatusActive, r.Status())
	assert.Equal(t, []uuid.UUID{passenger}, r.Passengers())
	require.NotNil(t, r.CurrentLocation())
	assert.Equal(t, geo.Coordinate{Latitude: 31.6, Longitude: 74.3}, r.CurrentLocation().Coordinates)
	assert.Equal(t, int64(2), r.Version())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormRideRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "rides"`).WillReturnRows(sqlmock.NewRows(rideColumns))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRideRepository_FindByID_StorageError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormRideRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "rides"`).WillReturnError(errors.New("connection refused"))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
}

func newRide(t *testing.T) *rideDomain.Ride {
	t.Helper()
	r, err := rideDomain.NewRide(
		geo.Place{Name: "Lahore", Coordinates: &geo.Coordinate{Latitude: 31.52, Longitude: 74.35}},
		geo.Place{Name: "Islamabad", Coordinates: &geo.Coordinate{Latitude: 33.68, Longitude: 73.04}},
		nil, 3000, 2, "375 km", "4 hours", nil,
	)
	require.NoError(t, err)
	return r
}

func lockedRideRows(id uuid.UUID, available int, status string) *sqlmock.Rows {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(rideColumns).AddRow(
		id.String(), nil,
		[]byte(`{"name":"Lahore","coordinates":{"latitude":31.52,"longitude":74.35}}`),
		[]byte(`{"name":"Islamabad","coordinates":{"latitude":33.68,"longitude":73.04}}`),
		[]byte(`[]`), nil, nil, nil,
		3000.0, 4, available, "375 km", "4 hours", status, []byte(`[]`),
		int64(3), created, created, nil,
	)
}

func TestRideRepository_Mutate(t *testing.T) {
	const lockQuery = `SELECT \* FROM "rides" WHERE id = \$1 .*FOR UPDATE`
	tests := []struct {
		name     string
		expect   func(sqlmock.Sqlmock, uuid.UUID)
		wantKind apperr.Kind
	}{
		{
			name: "locks then writes the next version",
			expect: func(m sqlmock.Sqlmock, id uuid.UUID) {
				m.ExpectBegin()
				m.ExpectQuery(lockQuery).WillReturnRows(lockedRideRows(id, 2, "active"))
				m.ExpectExec(`UPDATE "rides" SET .* WHERE .*id = \$\d+ AND version = \$\d+`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectCommit()
			},
		},
		{
			name: "domain error rolls back without writing",
			expect: func(m sqlmock.Sqlmock, id uuid.UUID) {
				m.ExpectBegin()
				m.ExpectQuery(lockQuery).WillReturnRows(lockedRideRows(id, 0, "completed"))
				m.ExpectRollback()
			},
			wantKind: apperr.KindNoSeatsAvailable,
		},
		{
			name: "missing ride",
			expect: func(m sqlmock.Sqlmock, _ uuid.UUID) {
				m.ExpectBegin()
				m.ExpectQuery(lockQuery).WillReturnRows(sqlmock.NewRows(rideColumns))
				m.ExpectRollback()
			},
			wantKind: apperr.KindNotFound,
		},
		{
			name: "driver failure on write",
			expect: func(m sqlmock.Sqlmock, id uuid.UUID) {
				m.ExpectBegin()
				m.ExpectQuery(lockQuery).WillReturnRows(lockedRideRows(id, 2, "active"))
				m.ExpectExec(`UPDATE "rides"`).WillReturnError(errors.New("broken pipe"))
				m.ExpectRollback()
			},
			wantKind: apperr.KindStorage,
		},
		{
			name: "commit failure",
			expect: func(m sqlmock.Sqlmock, id uuid.UUID) {
				m.ExpectBegin()
				m.ExpectQuery(lockQuery).WillReturnRows(lockedRideRows(id, 2, "active"))
				m.ExpectExec(`UPDATE "rides"`).WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectCommit().WillReturnError(errors.New("connection reset"))
			},
			wantKind: apperr.KindStorage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewGormRideRepository(db)
			id := uuid.New()
			tt.expect(mock, id)

			passenger := uuid.New()
			r, err := repo.Mutate(context.Background(), id, func(r *rideDomain.Ride) error {
				return r.BookSeat(passenger)
			})
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, int64(4), r.Version())
				assert.Equal(t, 1, r.AvailableSeats())
				assert.Equal(t, []uuid.UUID{passenger}, r.Passengers())
			} else {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				assert.Nil(t, r)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRideRepository_CountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormRideRepository(db)

	mock.ExpectQuery(`SELECT status, count\(\*\) as count FROM "rides" GROUP BY`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("active", int64(3)).
			AddRow("completed", int64(1)))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"active": 3, "completed": 1}, counts)
}

func TestToRideModel_RoundTripsLocation(t *testing.T) {
	r := newRide(t)
	at := time.UnixMilli(1_700_000_000_000).UTC()
	require.NoError(t, r.UpdateLocation(geo.Coordinate{Latitude: 32, Longitude: 74}, at))

	model, err := toRideModel(r)
	require.NoError(t, err)
	require.NotNil(t, model.CurrentLat)
	assert.Equal(t, 32.0, *model.CurrentLat)
	assert.JSONEq(t, `[]`, string(model.PathPoints))

	back, err := toDomainRide(model)
	require.NoError(t, err)
	require.NotNil(t, back.CurrentLocation())
	assert.Equal(t, at, back.CurrentLocation().Timestamp)
}

var routeColumns = []string{
	"id", "driver_id", "vehicle_id", "origin_name", "origin_lat", "origin_lng",
	"destination_name", "destination_lat", "destination_lng", "path_points", "place_name",
	"distance", "duration", "fare", "seats", "status", "created_at",
}

func routeRow(rows *sqlmock.Rows, destination, placeName string, lat, lng float64) *sqlmock.Rows {
	path, _ := json.Marshal([]geo.Coordinate{{Latitude: lat, Longitude: lng}})
	return rows.AddRow(
		uuid.NewString(), uuid.NewString(), uuid.NewString(), "Lahore", nil, nil,
		destination, lat, lng, path, placeName,
		"12 km", "25 mins", 600.0, 3, "active", time.Now().UTC(),
	)
}

func TestRouteRepository_FindByDestination_EscapesPattern(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormRouteRepository(db)

	rows := sqlmock.NewRows(routeColumns)
	routeRow(rows, "Lahore Cantt", "", 31.51, 74.38)
	routeRow(rows, "Model Town", "Lahore", 31.48, 74.32)
	mock.ExpectQuery(`SELECT \* FROM "driver_routes" WHERE .*destination_name ILIKE .* OR place_name ILIKE`).
		WithArgs(`%50\%\_off\_%`, `%50\%\_off\_%`).
		WillReturnRows(sqlmock.NewRows(routeColumns))
	mock.ExpectQuery(`SELECT \* FROM "driver_routes"`).
		WithArgs("%Lahore%", "%Lahore%").
		WillReturnRows(rows)

	var count int
	for _, err := range repo.FindByDestination(context.Background(), "50%_off_") {
		require.NoError(t, err)
		count++
	}
	assert.Zero(t, count)

	var names []string
	for rt, err := range repo.FindByDestination(context.Background(), " Lahore ") {
		require.NoError(t, err)
		names = append(names, rt.Destination().Name)
	}
	assert.Equal(t, []string{"Lahore Cantt", "Model Town"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteRepository_FindByDestination_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormRouteRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "driver_routes"`).WillReturnError(errors.New("timeout"))

	var errs []error
	for rt, err := range repo.FindByDestination(context.Background(), "Lahore") {
		assert.Nil(t, rt)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(errs[0]))
}

func TestRouteRepository_FindNearDestination(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormRouteRepository(db)

	rows := sqlmock.NewRows(routeColumns)
	// inside the bounding box but outside the radius
	routeRow(rows, "Corner", "", 31.56, 74.40)
	routeRow(rows, "Far", "", 31.54, 74.36)
	routeRow(rows, "Near", "", 31.521, 74.351)
	mock.ExpectQuery(`SELECT \* FROM "driver_routes" WHERE destination_lat BETWEEN .* AND destination_lng BETWEEN`).
		WillReturnRows(rows)

	routes, err := repo.FindNearDestination(context.Background(), geo.Coordinate{Latitude: 31.52, Longitude: 74.35}, 5)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "Near", routes[0].Destination().Name)
	assert.Equal(t, "Far", routes[1].Destination().Name)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\temp`, escapeLike(`c:\temp`))
}

func TestDriverDirectory(t *testing.T) {
	db, mock := newMockDB(t)
	dir := NewGormDriverDirectory(db)

	driverID := uuid.New()
	vehicleID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "drivers" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "created_at"}).
			AddRow(driverID.String(), "Ali", "ali@example.com", "+92300", time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "driver_vehicles" WHERE driver_id = \$1 ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "driver_id", "license_no", "number_plate", "number_of_seats", "image_url", "is_approved", "created_at"}).
			AddRow(vehicleID.String(), driverID.String(), "LHR-1", "LEA-1234", 4, "", true, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "drivers"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	drv, err := dir.FindDriver(context.Background(), driverID)
	require.NoError(t, err)
	assert.Equal(t, "Ali", drv.Name)

	vehicles, err := dir.VehiclesForDriver(context.Background(), driverID)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, vehicleID, vehicles[0].ID)
	assert.Equal(t, 4, vehicles[0].NumberOfSeats)

	_, err = dir.FindDriver(context.Background(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositories_RecoverPanics(t *testing.T) {
	ctx := context.Background()
	rides := &GormRideRepository{}
	routes := &GormRouteRepository{}
	directory := &GormDriverDirectory{}

	calls := map[string]func() error{
		"ride FindByID": func() error { _, err := rides.FindByID(ctx, uuid.New()); return err },
		"ride Save":     func() error { return rides.Save(ctx, newRide(t)) },
		"ride Mutate": func() error {
			_, err := rides.Mutate(ctx, uuid.New(), func(*rideDomain.Ride) error { return nil })
			return err
		},
		"ride ListActive":    func() error { _, err := rides.ListActive(ctx); return err },
		"ride ListAll":       func() error { _, _, err := rides.ListAll(ctx, 1, 10); return err },
		"ride CountByStatus": func() error { _, err := rides.CountByStatus(ctx); return err },
		"route FindByID":     func() error { _, err := routes.FindByID(ctx, uuid.New()); return err },
		"route FindNearDestination": func() error {
			_, err := routes.FindNearDestination(ctx, geo.Coordinate{Latitude: 31.5, Longitude: 74.3}, 5)
			return err
		},
		"directory FindDriver":        func() error { _, err := directory.FindDriver(ctx, uuid.New()); return err },
		"directory VehiclesForDriver": func() error { _, err := directory.VehiclesForDriver(ctx, uuid.New()); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = call() })
			assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
		})
	}
}
