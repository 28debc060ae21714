package payments

import (
	"context"
	"fmt"

	"github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/invoice"
)

// XenditProvider serves the Provider contract with Xendit's hosted invoice
// pages: creating a session creates an invoice and the session URL is the
// invoice URL.
type XenditProvider struct {
	client *xendit.APIClient
}

func NewXenditProvider(client *xendit.APIClient) *XenditProvider {
	return &XenditProvider{client: client}
}

func (p *XenditProvider) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	total := params.UnitPrice * int64(params.Quantity)

	request := *invoice.NewCreateInvoiceRequest(params.ReferenceID, float64(total))
	request.SuccessRedirectUrl = &params.SuccessURL
	request.FailureRedirectUrl = &params.CancelURL
	request.Items = []invoice.InvoiceItem{
		{
			Name:     params.ItemName,
			Price:    float32(params.UnitPrice),
			Quantity: float32(params.Quantity),
		},
	}

	created, _, err := p.client.InvoiceApi.CreateInvoice(ctx).
		CreateInvoiceRequest(request).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %s", err.Error())
	}

	return sessionFromInvoice(created), nil
}

// RetrieveSession looks the invoice up by its external id, which is the
// session identifier this storefront hands out. Xendit redirects back to
// the success URL verbatim, so the identifier has to be chosen before the
// invoice exists.
func (p *XenditProvider) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	invoices, _, err := p.client.InvoiceApi.GetInvoices(ctx).ExternalId(id).Execute()
	if err != nil {
		return nil, fmt.Errorf("retrieving checkout session %s: %s", id, err.Error())
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("checkout session %s not found", id)
	}

	return sessionFromInvoice(&invoices[0]), nil
}

func sessionFromInvoice(inv *invoice.Invoice) *Session {
	session := &Session{
		ID:          inv.ExternalId,
		URL:         inv.InvoiceUrl,
		Paid:        invoicePaid(string(inv.Status)),
		AmountTotal: int64(inv.Amount),
	}
	if inv.PayerEmail != nil {
		session.PayerEmail = *inv.PayerEmail
	}
	return session
}

// Xendit reports SETTLED once a paid invoice's funds are available; both
// states mean the entrant has paid.
func invoicePaid(status string) bool {
	return status == "PAID" || status == "SETTLED"
}
