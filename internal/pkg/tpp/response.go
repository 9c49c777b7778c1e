package tpp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Provider status codes. "00" is the only code that means delivered;
// "09" means still processing and must not be treated as failure.
const (
	StatusSuccess    = "00"
	StatusProcessing = "09"
)

// ErrUnavailable marks transport-level failures (timeout, network, non-2xx).
// The outcome of the underlying operation is unknown, not failed.
var ErrUnavailable = errors.New("tpp unavailable")

// Response is a parsed provider reply. Raw keeps the unmodified body for audit.
type Response struct {
	StatusCode string
	Message    string
	Raw        json.RawMessage
}

// Success reports whether the provider confirmed delivery
func (r *Response) Success() bool {
	return r.StatusCode == StatusSuccess
}

// Processing reports whether the provider is still working on the request
func (r *Response) Processing() bool {
	return r.StatusCode == StatusProcessing
}

// parseResponse extracts the status code from a provider reply. The provider
// is inconsistent about the key name ("status-code", "status_code" or
// "statusCode") and about whether the value is a string or a number.
func parseResponse(body []byte) (*Response, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse tpp response: %w", err)
	}

	resp := &Response{Raw: json.RawMessage(body)}

	for _, key := range []string{"status-code", "status_code", "statusCode"} {
		if v, ok := fields[key]; ok {
			resp.StatusCode = codeString(v)
			break
		}
	}
	if msg, ok := fields["message"].(string); ok {
		resp.Message = msg
	}

	return resp, nil
}

func codeString(v interface{}) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return fmt.Sprintf("%02.0f", c)
	default:
		return fmt.Sprintf("%v", c)
	}
}

// parseBalance tolerates both string and numeric balance values
func parseBalance(body []byte) (decimal.Decimal, error) {
	var payload struct {
		Balance interface{} `json:"balance"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse tpp balance: %w", err)
	}

	switch b := payload.Balance.(type) {
	case string:
		balance, err := decimal.NewFromString(b)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse tpp balance: %w", err)
		}
		return balance, nil
	case float64:
		return decimal.NewFromFloat(b), nil
	default:
		return decimal.Zero, fmt.Errorf("tpp balance missing in response: %s", string(body))
	}
}
