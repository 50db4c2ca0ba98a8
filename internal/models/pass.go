package models

import (
	"time"

	"github.com/google/uuid"
)

// PassKey identifies one pass instance.
type PassKey struct {
	PassTypeID   string
	SerialNumber string
}

func (k PassKey) String() string { return k.PassTypeID + "/" + k.SerialNumber }

// PassRecord is the persisted state of a built pass. Hash always matches
// the bundle currently stored for Key(); UpdatedAt moves only with Hash.
type PassRecord struct {
	ID                  uuid.UUID
	PassTypeID          string
	SerialNumber        string
	AuthenticationToken string
	Hash                string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (r PassRecord) Key() PassKey {
	return PassKey{PassTypeID: r.PassTypeID, SerialNumber: r.SerialNumber}
}

// Registration subscribes one device to update pushes for one pass.
type Registration struct {
	ID              uuid.UUID
	PassID          uuid.UUID
	DeviceLibraryID string
	PushToken       string
	CreatedAt       time.Time
}
