// Package tenant carries the caller identity used for limits and policy.
package tenant

import "context"

type contextKey string

const tenantContextKey contextKey = "taskrouter_tenant"

const HeaderTenantID = "X-Tenant-ID"

// Info identifies the caller of a request.
type Info struct {
	ID string
	// FromHeader is false when ID fell back to the client address.
	FromHeader bool
}

func ContextWithTenant(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, tenantContextKey, info)
}

func FromContext(ctx context.Context) (*Info, bool) {
	info, ok := ctx.Value(tenantContextKey).(*Info)
	return info, ok
}
