package auth

import "net/http"

// Request is the slice of an HTTP request the gate reads
type Request interface {
	Path() string
	Cookie(name string) string
	Header(name string) string
}

type httpRequest struct {
	r *http.Request
}

// NewHTTPRequest adapts a net/http request
func NewHTTPRequest(r *http.Request) Request {
	return httpRequest{r: r}
}

func (h httpRequest) Path() string {
	if h.r == nil || h.r.URL == nil {
		return "/"
	}
	return h.r.URL.Path
}

func (h httpRequest) Cookie(name string) string {
	if h.r == nil {
		return ""
	}
	c, err := h.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h httpRequest) Header(name string) string {
	if h.r == nil {
		return ""
	}
	return h.r.Header.Get(name)
}
