package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/raffleworks/rafflet/internal/ledger"
	"github.com/raffleworks/rafflet/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrInvalidQuantity is returned for a non-positive ticket quantity.
var ErrInvalidQuantity = errors.New("ticket quantity must be positive")

// maxAttempts bounds the optimistic retries when the unique index reports
// that another writer took the computed range first.
const maxAttempts = 3

// LedgerStore is the slice of the ledger the allocator needs.
type LedgerStore interface {
	HighestIssuedNumber(ctx context.Context) (int64, error)
	AppendBatch(ctx context.Context, batch ledger.Batch) error
}

// Service issues contiguous blocks of sequential ticket numbers. Reading
// the current highest number and inserting the new block is not atomic, so
// all allocations in this process are serialized by a mutex; the unique
// index on the ticket number backs that up across processes, and a
// conflict there triggers a re-read and retry.
type Service struct {
	store LedgerStore
	log   *logrus.Entry

	mu sync.Mutex
}

func NewService(store LedgerStore) *Service {
	return &Service{
		store: store,
		log:   logrus.WithField("component", "allocation"),
	}
}

// Allocate issues quantity consecutive ticket numbers to owner for the
// given checkout session. The returned tickets form one contiguous block
// starting right after the highest previously issued number.
//
// ledger.ErrSessionFulfilled is propagated unchanged so callers can treat
// a replayed session as already settled.
func (s *Service) Allocate(ctx context.Context, owner, sessionID string, quantity int) ([]models.Ticket, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		highest, err := s.store.HighestIssuedNumber(ctx)
		if err != nil {
			return nil, err
		}

		start := highest + 1
		tickets := make([]models.Ticket, quantity)
		for i := range tickets {
			tickets[i] = models.Ticket{
				OwnerID: owner,
				Number:  start + int64(i),
			}
		}

		err = s.store.AppendBatch(ctx, ledger.Batch{
			SessionID: sessionID,
			OwnerID:   owner,
			Tickets:   tickets,
		})
		if err == nil {
			s.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"first":      start,
				"last":       start + int64(quantity) - 1,
			}).Info("allocated ticket block")
			return tickets, nil
		}
		if errors.Is(err, ledger.ErrSessionFulfilled) {
			return nil, err
		}
		if !errors.Is(err, ledger.ErrNumberConflict) {
			return nil, err
		}

		lastErr = err
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"attempt":    attempt,
		}).Warn("ticket number conflict, retrying")
	}

	return nil, fmt.Errorf("allocation failed after %d attempts: %w", maxAttempts, lastErr)
}
