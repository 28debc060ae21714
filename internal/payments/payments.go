package payments

import "context"

// Session is the local view of a processor-hosted checkout session.
type Session struct {
	ID          string
	URL         string
	Paid        bool
	AmountTotal int64
	PayerEmail  string
}

// CreateSessionParams describes the purchase a hosted checkout session is
// opened for. Prices are in minor currency units.
type CreateSessionParams struct {
	ReferenceID string
	ItemName    string
	Quantity    int
	UnitPrice   int64
	SuccessURL  string
	CancelURL   string
}

// Provider is the payment processor the storefront talks to. It is
// consumed, never reimplemented: sessions live on the processor's side and
// are referenced here only by id.
type Provider interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}
