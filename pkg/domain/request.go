package domain

// Request is one inbound callback after the transport layer has reduced the
// aggregator payload to the latest user input.
type Request struct {
	SessionID string `json:"sessionId"`
	Phone     string `json:"phoneNumber"`
	Input     string `json:"text"`
}
