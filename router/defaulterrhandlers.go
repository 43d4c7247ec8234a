package router

import (
	"github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/http/status"
)

// DefaultErrorHandler renders a canned response for a protocol-level error. Routers
// with their own error pages should wrap this rather than special-case every code.
func DefaultErrorHandler(request *http.Request, err error) *http.Response {
	if err == status.ErrCloseConnection || err == status.ErrGracefulShutdown {
		// the peer is already gone (or going); no response can reach it.
		return request.Respond()
	}

	resp := request.Respond().Error(err)

	if httpErr, ok := err.(status.HTTPError); ok && httpErr.Code == status.MethodNotAllowed {
		resp = resp.Header("Allow", request.Env.AllowedMethods)
	}

	return resp
}
