// Package router defines the boundary between the connection engine and the
// application: the engine only ever needs to hand a completed request to a Router
// and get a Response back, however that mapping is actually implemented.
package router

import "github.com/wireloom/wireloom/http"

// Router dispatches a fully-headed request to whatever application logic answers
// it, and separately supplies a response for requests the engine itself could not
// complete (a malformed message, a body that overflowed a limit, and so on).
type Router interface {
	OnRequest(request *http.Request) *http.Response
	OnError(request *http.Request, err error) *http.Response
}

// Func adapts a plain function into a Router whose OnError falls back to
// DefaultErrorHandler.
type Func func(request *http.Request) *http.Response

func (f Func) OnRequest(request *http.Request) *http.Response {
	return f(request)
}

func (f Func) OnError(request *http.Request, err error) *http.Response {
	return DefaultErrorHandler(request, err)
}
