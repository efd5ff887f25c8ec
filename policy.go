package auth

import "strings"

// Tier is the requirement a path places on the caller
type Tier int

const (
	// TierPublic needs nothing
	TierPublic Tier = iota
	// TierGuestOnly pages are for anonymous visitors (login, signup)
	TierGuestOnly
	// TierAuthenticated needs any valid token
	TierAuthenticated
	// TierAdmin needs a valid token and a stored admin role
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierGuestOnly:
		return "guest-only"
	case TierAuthenticated:
		return "authenticated"
	case TierAdmin:
		return "admin"
	default:
		return "public"
	}
}

// RoutePolicy is the static path table. Matching is by path segment
// prefix and runs admin, then authenticated, then guest-only.
type RoutePolicy struct {
	AdminPrefixes         []string
	AuthenticatedPrefixes []string
	GuestOnlyPaths        []string
	// APIPrefix paths get status codes instead of redirects
	APIPrefix string
	// LoginPath is where anonymous visitors are sent
	LoginPath string
	// LandingPath is where signed in visitors are sent away from guest-only pages
	LandingPath string
	// UnprivilegedPath is where non admins are sent away from admin pages
	UnprivilegedPath string
}

// DefaultRoutePolicy is the portal's path table
func DefaultRoutePolicy() RoutePolicy {
	return RoutePolicy{
		AdminPrefixes:         []string{"/admin", "/api/admin"},
		AuthenticatedPrefixes: []string{"/dashboard", "/authors", "/reviewer", "/settings", "/api/account", "/api/submissions"},
		GuestOnlyPaths:        []string{"/login", "/signup"},
		APIPrefix:             "/api",
		LoginPath:             "/login",
		LandingPath:           "/dashboard",
		UnprivilegedPath:      "/dashboard",
	}
}

// Classify returns the tier for path
func (p RoutePolicy) Classify(path string) Tier {
	path = normalizePath(path)
	switch {
	case matchAny(path, p.AdminPrefixes):
		return TierAdmin
	case matchAny(path, p.AuthenticatedPrefixes):
		return TierAuthenticated
	case matchAny(path, p.GuestOnlyPaths):
		return TierGuestOnly
	default:
		return TierPublic
	}
}

// IsAPI reports whether path is under the API prefix
func (p RoutePolicy) IsAPI(path string) bool {
	if p.APIPrefix == "" {
		return false
	}
	return HasPathPrefix(normalizePath(path), p.APIPrefix)
}

func (p RoutePolicy) withDefaults() RoutePolicy {
	def := DefaultRoutePolicy()
	if p.LoginPath == "" {
		p.LoginPath = def.LoginPath
	}
	if p.LandingPath == "" {
		p.LandingPath = def.LandingPath
	}
	if p.UnprivilegedPath == "" {
		p.UnprivilegedPath = p.LandingPath
	}
	return p
}

// HasPathPrefix reports whether path equals prefix or continues
// it with a new segment. "/admin" matches "/admin/users", never "/administrator".
func HasPathPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func matchAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if HasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
