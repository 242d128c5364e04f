// Package tenants provides the tenant directory and resolver.
// Tenants are provisioned out-of-band; this core only reads them.
package tenants

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one isolated customer business. Subdomain and InboundAssistantID
// are each unique across all tenants and are the two routing keys for
// inbound traffic.
type Tenant struct {
	ID                 uuid.UUID
	Name               string
	Subdomain          string
	InboundAssistantID string
	BusinessType       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
