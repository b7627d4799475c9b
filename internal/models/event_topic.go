package models

// EventTopic maps a 32-byte topic hash to event metadata. Rows are immutable
// reference data seeded by migrations and loaded once per scan run.
type EventTopic struct {
	ID        string `json:"id"`
	EventName string `json:"eventName"`
	// Topic0 is the keccak256 hash of the canonical event signature,
	// compared case-insensitively.
	Topic0 string `json:"topic0"`
	// Signature is the ABI-style event signature, e.g.
	// "BidSubmitted(uint256 indexed id, address indexed owner, uint256 price, uint128 amount)".
	// Empty means the event is known but not decodable.
	Signature string `json:"signature,omitempty"`
	// Params is a free-form description of the event parameters.
	Params string `json:"params,omitempty"`
}
