package tenants

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"
)

// Directory is the lookup surface the resolver needs. Satisfied by Repository.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (Tenant, error)
	GetByAssistantID(ctx context.Context, assistantID string) (Tenant, error)
}

// reservedLabels are subdomains that never route to a tenant.
var reservedLabels = map[string]bool{
	"www":   true,
	"api":   true,
	"admin": true,
	"app":   true,
}

// loopbackAliases are development hosts that carry no tenant label.
var loopbackAliases = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
}

// Resolver derives a tenant from an inbound request or event.
type Resolver struct {
	dir Directory
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve maps request context to exactly one tenant. Resolution order, first
// match wins:
//
//  1. explicitTenantID (development/testing override), by id
//  2. subdomain label extracted from hostHeader
//  3. assistantID, by inbound assistant id
//
// A miss at every step returns ErrTenantNotFound; callers branch on it, it is
// never a fault. The resolver performs reads only.
func (r *Resolver) Resolve(ctx context.Context, hostHeader, assistantID, explicitTenantID string) (Tenant, error) {
	if explicitTenantID != "" {
		id, err := uuid.Parse(explicitTenantID)
		if err != nil {
			return Tenant{}, ErrTenantNotFound
		}
		return r.dir.GetByID(ctx, id)
	}

	if label := SubdomainFromHost(hostHeader); label != "" {
		tenant, err := r.dir.GetBySubdomain(ctx, label)
		if err == nil {
			return tenant, nil
		}
		if !errors.Is(err, ErrTenantNotFound) {
			return Tenant{}, err
		}
	}

	if assistantID != "" {
		return r.dir.GetByAssistantID(ctx, assistantID)
	}

	return Tenant{}, ErrTenantNotFound
}

// SubdomainFromHost extracts the candidate tenant label from a Host header.
// Returns "" when the host carries no usable label: loopback aliases, bare
// domains (fewer than three labels), and reserved labels all yield nothing.
// Only the first label is considered ("a.b.example.com" yields "a").
func SubdomainFromHost(hostHeader string) string {
	host := strings.ToLower(strings.TrimSpace(hostHeader))
	if host == "" {
		return ""
	}

	if stripped, _, err := net.SplitHostPort(host); err == nil {
		host = stripped
	}

	if loopbackAliases[host] {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}

	label := labels[0]
	if label == "" || reservedLabels[label] {
		return ""
	}

	return label
}
