// Package driver is the read side of the driver/vehicle directory. Drivers and
// vehicles are registered by the onboarding service; this service only looks them up.
package driver

import (
	"context"

	"github.com/google/uuid"
)

// Driver is a registered driver.
type Driver struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

// Vehicle is a driver's registered vehicle.
type Vehicle struct {
	ID            uuid.UUID
	DriverID      uuid.UUID
	LicenseNo     string
	NumberPlate   string
	NumberOfSeats int
	ImageURL      string
	IsApproved    bool
}

// Directory looks up drivers and their vehicles.
type Directory interface {
	// FindDriver returns the driver or an apperr.KindNotFound error.
	FindDriver(ctx context.Context, driverID uuid.UUID) (*Driver, error)

	// VehiclesForDriver returns the driver's vehicles in registration order.
	VehiclesForDriver(ctx context.Context, driverID uuid.UUID) ([]Vehicle, error)
}

// SelectVehicle picks vehicleID from vehicles, or the first vehicle when vehicleID
// is nil. It returns false if there is no match.
func SelectVehicle(vehicles []Vehicle, vehicleID *uuid.UUID) (Vehicle, bool) {
	if len(vehicles) == 0 {
		return Vehicle{}, false
	}
	if vehicleID == nil {
		return vehicles[0], true
	}
	for _, v := range vehicles {
		if v.ID == *vehicleID {
			return v, true
		}
	}
	return Vehicle{}, false
}
