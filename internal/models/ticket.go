package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket is a single raffle entry. Numbers are issued sequentially and a
// ticket is never updated or deleted after creation.
type Ticket struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	OwnerID  string    `gorm:"not null;index"`
	Number   int64     `gorm:"not null;uniqueIndex"`
	IssuedAt time.Time `gorm:"autoCreateTime"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}
