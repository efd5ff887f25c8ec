package auth

import (
	"fmt"
	"net/http"
)

// DecisionKind is the outcome of an access check
type DecisionKind int

const (
	// DecisionAllow lets the request through
	DecisionAllow DecisionKind = iota
	// DecisionRedirect sends the client elsewhere
	DecisionRedirect
	// DecisionDeny answers with a status code and JSON error body
	DecisionDeny
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	case DecisionDeny:
		return "deny"
	default:
		return fmt.Sprintf("decision(%d)", int(k))
	}
}

// Decision is consumed by both page and API callers.
// Location is set for redirects, Status and Message for denials.
// Reason carries the taxonomy error behind a non allow outcome.
type Decision struct {
	Kind     DecisionKind
	Location string
	Status   int
	Message  string
	Reason   error
}

// ErrorBody is the JSON body sent with a denial
type ErrorBody struct {
	Error string `json:"error"`
}

// Allow lets the request through
func Allow() Decision {
	return Decision{Kind: DecisionAllow}
}

// RedirectTo sends the client to location
func RedirectTo(location string, reason error) Decision {
	return Decision{Kind: DecisionRedirect, Location: location, Reason: reason}
}

// Deny answers with status and a {"error": message} body
func Deny(status int, message string, reason error) Decision {
	if message == "" {
		message = http.StatusText(status)
	}
	return Decision{Kind: DecisionDeny, Status: status, Message: message, Reason: reason}
}

// Allowed reports whether the request may proceed
func (d Decision) Allowed() bool {
	return d.Kind == DecisionAllow
}

// IsRedirect reports whether the decision is a redirect
func (d Decision) IsRedirect() bool {
	return d.Kind == DecisionRedirect
}

// IsDeny reports whether the decision is a denial
func (d Decision) IsDeny() bool {
	return d.Kind == DecisionDeny
}

// Body returns the JSON error body for a denial
func (d Decision) Body() ErrorBody {
	return ErrorBody{Error: d.Message}
}

func (d Decision) String() string {
	switch d.Kind {
	case DecisionRedirect:
		return "redirect:" + d.Location
	case DecisionDeny:
		return fmt.Sprintf("deny:%d", d.Status)
	default:
		return d.Kind.String()
	}
}
