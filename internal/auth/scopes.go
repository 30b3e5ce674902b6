package auth

// Known OAuth scopes used by the reconciliation service.
const (
	ScopeImportsWrite = "imports:write"
	ScopeImportsRead  = "imports:read"
)
