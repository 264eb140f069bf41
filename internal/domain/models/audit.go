package models

import "github.com/turtacn/keygate/pkg/constants"

// AuditEvent is a lifecycle event published to the audit stream. Events are
// observational only; the ledger's correctness never depends on them.
type AuditEvent struct {
	// ID is a unique event identifier.
	ID string `json:"id"`

	// Type classifies the lifecycle transition.
	Type constants.AuditEventType `json:"type"`

	// ServiceAuthority identifies the service the event belongs to.
	ServiceAuthority string `json:"service_authority"`

	// Owner identifies the key owner, when the event concerns a key.
	Owner string `json:"owner,omitempty"`

	// Sequence identifies the key, when the event concerns a key.
	Sequence uint64 `json:"sequence,omitempty"`

	// Signer is the identity that triggered the transition.
	Signer string `json:"signer,omitempty"`

	// Timestamp is the ledger clock reading at the time of the event, in
	// unix seconds.
	Timestamp int64 `json:"timestamp"`

	// Metadata carries transition-specific context.
	Metadata map[string]string `json:"metadata,omitempty"`
}
