package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fulfillment marks a checkout session whose tickets have been issued.
// The unique index on SessionID is what makes replays of the success URL
// harmless: the ticket batch and its fulfillment row commit together.
type Fulfillment struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	SessionID   string    `gorm:"not null;uniqueIndex"`
	OwnerID     string    `gorm:"not null"`
	FirstNumber int64     `gorm:"not null"`
	Quantity    int       `gorm:"not null"`
	CreatedAt   time.Time
}

func (fulfillment *Fulfillment) BeforeCreate(tx *gorm.DB) (err error) {
	if fulfillment.ID == uuid.Nil {
		fulfillment.ID = uuid.New()
	}
	return
}

// LastNumber is the highest ticket number in the fulfilled batch.
func (fulfillment *Fulfillment) LastNumber() int64 {
	return fulfillment.FirstNumber + int64(fulfillment.Quantity) - 1
}
