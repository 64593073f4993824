package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	driverDomain "github.com/paklift/service-ride/internal/domain/driver"
	"github.com/paklift/service-ride/internal/platform/apperr"
)

// DriverModel is the GORM model for the drivers table. Rows are owned by the
// onboarding service.
type DriverModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex"`
	Phone     string    `gorm:"type:varchar(30)"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName overrides the GORM table name.
func (DriverModel) TableName() string { return "drivers" }

// VehicleModel is the GORM model for the driver_vehicles table.
type VehicleModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	DriverID      uuid.UUID `gorm:"type:uuid;not null;index"`
	LicenseNo     string    `gorm:"type:varchar(50)"`
	NumberPlate   string    `gorm:"type:varchar(20)"`
	NumberOfSeats int       `gorm:"type:int;not null"`
	ImageURL      string    `gorm:"type:text"`
	IsApproved    bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"type:timestamptz;not null"`
}

// TableName overrides the GORM table name.
func (VehicleModel) TableName() string { return "driver_vehicles" }

// GormDriverDirectory implements driver.Directory using GORM.
type GormDriverDirectory struct {
	db *gorm.DB
}

// NewGormDriverDirectory creates a directory backed by db.
func NewGormDriverDirectory(db *gorm.DB) *GormDriverDirectory {
	return &GormDriverDirectory{db: db}
}

// FindDriver loads a driver's profile by ID.
func (d *GormDriverDirectory) FindDriver(ctx context.Context, driverID uuid.UUID) (_ *driverDomain.Driver, err error) {
	defer recoverStorage("failed to find driver", &err)

	var model DriverModel
	if err := d.db.WithContext(ctx).Where("id = ?", driverID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("Driver", driverID.String())
		}
		return nil, apperr.NewStorageError("failed to find driver", err)
	}
	return &driverDomain.Driver{
		ID:    model.ID,
		Name:  model.Name,
		Email: model.Email,
		Phone: model.Phone,
	}, nil
}

// VehiclesForDriver lists a driver's registered vehicles, oldest first.
func (d *GormDriverDirectory) VehiclesForDriver(ctx context.Context, driverID uuid.UUID) (_ []driverDomain.Vehicle, err error) {
	defer recoverStorage("failed to find driver vehicles", &err)

	var models []VehicleModel
	if err := d.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, apperr.NewStorageError("failed to find driver vehicles", err)
	}
	vehicles := make([]driverDomain.Vehicle, len(models))
	for i, m := range models {
		vehicles[i] = toVehicleDomain(&m)
	}
	return vehicles, nil
}

// --- Conversions ---

func toVehicleDomain(m *VehicleModel) driverDomain.Vehicle {
	return driverDomain.Vehicle{
		ID:            m.ID,
		DriverID:      m.DriverID,
		LicenseNo:     m.LicenseNo,
		NumberPlate:   m.NumberPlate,
		NumberOfSeats: m.NumberOfSeats,
		ImageURL:      m.ImageURL,
		IsApproved:    m.IsApproved,
	}
}
