package tpp

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// SendSMS delivers a notification message through the provider's SMS gateway.
// Callers treat this as best-effort: a returned error is logged, never
// propagated into a financial operation.
func (c *Client) SendSMS(ctx context.Context, recipient, message string) error {
	senderID := c.config.SenderID
	if senderID == "" {
		senderID = "DataApp"
	}

	params := url.Values{}
	params.Set("recipient", recipient)
	params.Set("message", message)
	params.Set("sender_id", senderID)
	params.Set("trxn", fmt.Sprintf("sms-%d", time.Now().UnixMilli()))

	_, err := c.get(ctx, "/TopUpApi/sms", params, c.config.QueryTimeout)
	return err
}
