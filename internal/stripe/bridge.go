package stripe

import (
	"context"

	"github.com/agrovalue/marketplace-api/internal/domain/payment"
)

var _ payment.Processor = (*Bridge)(nil)

// Bridge adapts the HTTP client to the payment.Processor port.
type Bridge struct {
	client *Client
}

// NewBridge wraps an existing Client.
func NewBridge(client *Client) *Bridge {
	return &Bridge{client: client}
}

// CreateIntent issues a create-intent request and returns the processor's
// opaque handle verbatim.
func (b *Bridge) CreateIntent(ctx context.Context, amountMinorUnits int64, currency string) (*payment.Intent, error) {
	pi, err := b.client.CreatePaymentIntent(ctx, amountMinorUnits, currency)
	if err != nil {
		return nil, err
	}
	return &payment.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
