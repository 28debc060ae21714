package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/raffleworks/rafflet/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrSessionFulfilled means the batch's checkout session already has
	// tickets issued for it.
	ErrSessionFulfilled = errors.New("checkout session already fulfilled")
	// ErrNumberConflict means a ticket number in the batch is already
	// taken, i.e. a concurrent writer got there first.
	ErrNumberConflict = errors.New("ticket number already issued")
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Batch is one fulfilled purchase: the tickets to issue plus the checkout
// session they settle.
type Batch struct {
	SessionID string
	OwnerID   string
	Tickets   []models.Ticket
}

// Store is the persistent ledger of issued tickets.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// HighestIssuedNumber returns the maximum issued ticket number, or 0 when
// the ledger is empty.
func (s *Store) HighestIssuedNumber(ctx context.Context) (int64, error) {
	var highest int64
	err := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Select("COALESCE(MAX(number), 0)").
		Scan(&highest).Error
	if err != nil {
		return 0, fmt.Errorf("reading highest issued number: %w", err)
	}
	return highest, nil
}

// AppendBatch persists the batch's fulfillment marker and all of its
// tickets in a single transaction; either everything commits or nothing
// does. A duplicate session id yields ErrSessionFulfilled, a duplicate
// ticket number ErrNumberConflict.
func (s *Store) AppendBatch(ctx context.Context, batch Batch) error {
	if len(batch.Tickets) == 0 {
		return errors.New("empty ticket batch")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fulfillment := models.Fulfillment{
			SessionID:   batch.SessionID,
			OwnerID:     batch.OwnerID,
			FirstNumber: batch.Tickets[0].Number,
			Quantity:    len(batch.Tickets),
		}
		if err := tx.Create(&fulfillment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSessionFulfilled
			}
			return err
		}

		if err := tx.Create(&batch.Tickets).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrNumberConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionFulfilled) || errors.Is(err, ErrNumberConflict) {
			return err
		}
		return fmt.Errorf("appending ticket batch: %w", err)
	}
	return nil
}

// FulfillmentBySession looks up the fulfillment recorded for a checkout
// session, if any.
func (s *Store) FulfillmentBySession(ctx context.Context, sessionID string) (*models.Fulfillment, error) {
	var fulfillment models.Fulfillment
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&fulfillment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up fulfillment: %w", err)
	}
	return &fulfillment, nil
}

// TicketByNumber returns the issued ticket carrying the given number.
func (s *Store) TicketByNumber(ctx context.Context, number int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).
		Where("number = ?", number).
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up ticket %d: %w", number, err)
	}
	return &ticket, nil
}
