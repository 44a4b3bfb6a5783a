package cryptocompare

import "encoding/json"

// ErrorResponse is the envelope CryptoCompare returns with HTTP 200 when a
// request is rejected (unknown symbol set, rate limit, bad key).
type ErrorResponse struct {
	Response string          `json:"Response"` // "Error" on failure
	Message  string          `json:"Message"`
	Type     int             `json:"Type"`
	Data     json.RawMessage `json:"Data"`
}
