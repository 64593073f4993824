package application

import (
	"context"
	"iter"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	driverDomain "github.com/paklift/service-ride/internal/domain/driver"
	"github.com/paklift/service-ride/internal/domain/geo"
	rideDomain "github.com/paklift/service-ride/internal/domain/ride"
	routeDomain "github.com/paklift/service-ride/internal/domain/route"
	"github.com/paklift/service-ride/internal/platform/apperr"
	"github.com/paklift/service-ride/internal/platform/kafka"
)

// memRideRepo stores detached copies of rides. Mutate holds the mutex for the
// whole read-modify-write, like the row lock the SQL repository takes.
type memRideRepo struct {
	mu       sync.Mutex
	rides    map[uuid.UUID]*rideDomain.Ride
	updates  int
	delay    time.Duration
	failWith error
}

func newMemRideRepo() *memRideRepo {
	return &memRideRepo{rides: map[uuid.UUID]*rideDomain.Ride{}}
}

func cloneRide(r *rideDomain.Ride) *rideDomain.Ride {
	var loc *rideDomain.Location
	if l := r.CurrentLocation(); l != nil {
		c := *l
		loc = &c
	}
	var endedAt = r.EndedAt()
	if endedAt != nil {
		t := *endedAt
		endedAt = &t
	}
	return rideDomain.ReconstructRide(
		r.ID(), r.RouteID(), r.Origin(), r.Destination(), slices.Clone(r.PathPoints()), loc,
		r.TotalFare(), r.TotalSeats(), r.AvailableSeats(), r.Distance(), r.Duration(),
		r.Status(), slices.Clone(r.Passengers()), r.Version(), r.CreatedAt(), r.UpdatedAt(), endedAt,
	)
}

func (m *memRideRepo) FindByID(_ context.Context, id uuid.UUID) (*rideDomain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	r, ok := m.rides[id]
	if !ok {
		return nil, apperr.NewNotFoundError("Ride", id.String())
	}
	return cloneRide(r), nil
}

func (m *memRideRepo) ListActive(_ context.Context) ([]*rideDomain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*rideDomain.Ride
	for _, r := range m.rides {
		if r.Status() == rideDomain.StatusActive {
			out = append(out, cloneRide(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

func (m *memRideRepo) ListAll(_ context.Context, page, limit int) ([]*rideDomain.Ride, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*rideDomain.Ride
	for _, r := range m.rides {
		out = append(out, cloneRide(r))
	}
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return []*rideDomain.Ride{}, total, nil
	}
	end := min(start+limit, len(out))
	return out[start:end], total, nil
}

func (m *memRideRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, r := range m.rides {
		counts[r.Status().String()]++
	}
	return counts, nil
}

func (m *memRideRepo) Save(_ context.Context, r *rideDomain.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.rides[r.ID()] = cloneRide(r)
	return nil
}

func (m *memRideRepo) Mutate(_ context.Context, id uuid.UUID, fn func(*rideDomain.Ride) error) (*rideDomain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	stored, ok := m.rides[id]
	if !ok {
		return nil, apperr.NewNotFoundError("Ride", id.String())
	}
	r := cloneRide(stored)
	if err := fn(r); err != nil {
		return nil, err
	}
	r.IncrementVersion()
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.updates++
	m.rides[id] = cloneRide(r)
	return r, nil
}

func (m *memRideRepo) get(id uuid.UUID) *rideDomain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRide(m.rides[id])
}

// memRouteRepo filters in memory with the same semantics as the SQL query.
type memRouteRepo struct {
	mu       sync.Mutex
	routes   []*routeDomain.Route
	failWith error
}

func (m *memRouteRepo) FindByID(_ context.Context, id uuid.UUID) (*routeDomain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.routes {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, apperr.NewNotFoundError("Route", id.String())
}

func (m *memRouteRepo) FindByDestination(_ context.Context, text string) iter.Seq2[*routeDomain.Route, error] {
	return func(yield func(*routeDomain.Route, error) bool) {
		m.mu.Lock()
		snapshot := slices.Clone(m.routes)
		failWith := m.failWith
		m.mu.Unlock()

		if failWith != nil {
			yield(nil, failWith)
			return
		}
		for _, r := range snapshot {
			if matchesDestination(r, text) && !yield(r, nil) {
				return
			}
		}
	}
}

// matchesDestination mirrors the case-insensitive substring match of the SQL
// destination search.
func matchesDestination(r *routeDomain.Route, text string) bool {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.Destination().Name), q) ||
		strings.Contains(strings.ToLower(r.PlaceName()), q)
}

func (m *memRouteRepo) FindNearDestination(_ context.Context, center geo.Coordinate, radiusKm float64) ([]*routeDomain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*routeDomain.Route
	for _, r := range m.routes {
		if center.DistanceKm(r.DestinationCoordinates()) <= radiusKm {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return center.DistanceKm(out[i].DestinationCoordinates()) < center.DistanceKm(out[j].DestinationCoordinates())
	})
	return out, nil
}

func (m *memRouteRepo) Save(_ context.Context, r *routeDomain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.routes = append(m.routes, r)
	return nil
}

type fakeDirectory struct {
	drivers  map[uuid.UUID]driverDomain.Driver
	vehicles map[uuid.UUID][]driverDomain.Vehicle
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		drivers:  map[uuid.UUID]driverDomain.Driver{},
		vehicles: map[uuid.UUID][]driverDomain.Vehicle{},
	}
}

func (d *fakeDirectory) addDriver(vehicleSeats ...int) (uuid.UUID, []driverDomain.Vehicle) {
	id := uuid.New()
	d.drivers[id] = driverDomain.Driver{ID: id, Name: "Driver"}
	for _, seats := range vehicleSeats {
		d.vehicles[id] = append(d.vehicles[id], driverDomain.Vehicle{ID: uuid.New(), DriverID: id, NumberOfSeats: seats})
	}
	return id, d.vehicles[id]
}

func (d *fakeDirectory) FindDriver(_ context.Context, driverID uuid.UUID) (*driverDomain.Driver, error) {
	drv, ok := d.drivers[driverID]
	if !ok {
		return nil, apperr.NewNotFoundError("Driver", driverID.String())
	}
	return &drv, nil
}

func (d *fakeDirectory) VehiclesForDriver(_ context.Context, driverID uuid.UUID) ([]driverDomain.Vehicle, error) {
	return d.vehicles[driverID], nil
}

// fakeGeocoder resolves from a fixed table and counts lookups.
type fakeGeocoder struct {
	mu      sync.Mutex
	places  map[string]geo.Coordinate
	lookups []string
}

func (g *fakeGeocoder) Resolve(ctx context.Context, placeName string) (geo.Coordinate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups = append(g.lookups, placeName)
	if err := ctx.Err(); err != nil {
		return geo.Coordinate{}, err
	}
	c, ok := g.places[placeName]
	if !ok {
		return geo.Coordinate{}, apperr.New(apperr.KindAddressNotFound, "address not found")
	}
	return c, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
