package request

import (
	"encoding/json"
	"net/http"
	"time"
)

// Call makes an HTTP request using the provided request object and decodes
// the JSON response body into the provided structure. The timeout bounds the
// whole round trip; collaborator calls must never be able to stall a ledger
// operation indefinitely.
func Call(req *http.Request, timeout time.Duration, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: timeout}

	resp, err := client.Do(req)
	if err != nil {
		return resp, err
	}
	defer func() { _ = resp.Body.Close() }()

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
