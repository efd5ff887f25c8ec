package jwtware

import (
	auth "github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-router"
)

type routerRequest struct {
	ctx router.Context
}

// NewRequest adapts a router context to auth.Request
func NewRequest(ctx router.Context) auth.Request {
	return routerRequest{ctx: ctx}
}

func (r routerRequest) Path() string {
	return r.ctx.Path()
}

func (r routerRequest) Cookie(name string) string {
	return r.ctx.Cookies(name)
}

func (r routerRequest) Header(name string) string {
	return r.ctx.Header(name)
}
