package models

// Event names pushed to connected displays.
const (
	EventKDSUpdate         = "kds_update"
	EventTransactionUpdate = "transaction_update"
)

// Event is the frame written to display sockets and relayed to external sinks.
type Event struct {
	Name    string `json:"event"`
	Payload string `json:"payload"`
}
