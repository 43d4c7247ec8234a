package http1

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/http/status"
	"github.com/wireloom/wireloom/router"
	"github.com/wireloom/wireloom/transport"
	"github.com/wireloom/wireloom/transport/dummy"
	"github.com/stretchr/testify/require"
)

type echoRouter struct {
	requests int
}

func (e *echoRouter) OnRequest(request *http.Request) *http.Response {
	e.requests++
	return request.Respond().String("ok")
}

func (e *echoRouter) OnError(request *http.Request, err error) *http.Response {
	return router.DefaultErrorHandler(request, err)
}

func TestConnectionEngine_SingleRequestThenClose(t *testing.T) {
	client := dummy.NewMockClient([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")).Once()
	cfg := config.Default()
	pool := NewBufferPool(cfg, 1)
	r := &echoRouter{}

	engine := NewConnectionEngine(cfg, r, client, pool, nil, nil)
	engine.Serve()

	require.Equal(t, 1, r.requests)
	out := client.Written()
	require.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, out, "Connection: close\r\n")
	require.True(t, strings.HasSuffix(out, "ok"))
}

func TestConnectionEngine_PipelinedPersistentRequests(t *testing.T) {
	script := []byte(
		"GET /one HTTP/1.1\r\n\r\n" +
			"GET /two HTTP/1.1\r\nConnection: close\r\n\r\n",
	)
	client := dummy.NewMockClient(script).Once()
	cfg := config.Default()
	pool := NewBufferPool(cfg, 1)
	r := &echoRouter{}

	engine := NewConnectionEngine(cfg, r, client, pool, nil, nil)
	engine.Serve()

	require.Equal(t, 2, r.requests)
	require.Equal(t, 2, strings.Count(client.Written(), "HTTP/1.1 200 OK"))
}

func TestConnectionEngine_H2CPreambleWithoutUpgraderSynthesizes426(t *testing.T) {
	client := dummy.NewMockClient([]byte(h2cPreamble)).Once()
	cfg := config.Default()
	pool := NewBufferPool(cfg, 1)
	r := &echoRouter{}

	engine := NewConnectionEngine(cfg, r, client, pool, nil, nil)
	engine.Serve()

	require.Equal(t, 0, r.requests)
	require.Contains(t, client.Written(), "426")
}

func TestConnectionEngine_H2CPreambleHandsOffToUpgrader(t *testing.T) {
	client := dummy.NewMockClient([]byte(h2cPreamble)).Once()
	cfg := config.Default()
	pool := NewBufferPool(cfg, 1)
	r := &echoRouter{}

	var handedOff bool
	upgrader := func(request *http.Request, taken transport.Client, leftover []byte) bool {
		handedOff = true
		return true
	}

	engine := NewConnectionEngine(cfg, r, client, pool, upgrader, nil)
	engine.Serve()

	require.True(t, handedOff)
	require.Equal(t, 0, r.requests)
	require.Empty(t, client.Written())
}

func TestConnectionEngine_DrainingClosesAfterCurrentResponse(t *testing.T) {
	script := []byte(
		"GET /one HTTP/1.1\r\n\r\n" +
			"GET /two HTTP/1.1\r\n\r\n",
	)
	client := dummy.NewMockClient(script).Once()
	cfg := config.Default()
	pool := NewBufferPool(cfg, 1)
	r := &echoRouter{}

	var draining atomic.Bool
	draining.Store(true)

	engine := NewConnectionEngine(cfg, r, client, pool, nil, &draining)
	engine.Serve()

	// Draining flips persistence off before the first exchange is even decided,
	// so the connection answers "/one" with Connection: close and never reaches
	// "/two" even though the client sent it eagerly.
	require.Equal(t, 1, r.requests)
	out := client.Written()
	require.Contains(t, out, "Connection: close\r\n")
	require.Equal(t, 1, strings.Count(out, "HTTP/1.1 200 OK"))
}

func TestConnectionEngine_RejectedRequestNeverSendsStaleContinue(t *testing.T) {
	script := []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nExpect: 100-continue\r\nConnection: close\r\n\r\n")
	client := dummy.NewMockClient(script).Once()
	cfg := config.Default()
	pool := NewBufferPool(cfg, 1)
	r := router.Func(func(request *http.Request) *http.Response {
		// rejects outright, never touching the body the client is holding
		// back behind the "100 Continue" it's still waiting on.
		return request.Respond().Code(status.BadRequest)
	})

	engine := NewConnectionEngine(cfg, r, client, pool, nil, nil)
	engine.Serve()

	out := client.Written()
	require.NotContains(t, out, "100 Continue")
	require.Contains(t, out, "400")
}

func TestConnectionEngine_UnknownExpectRespondsWith417(t *testing.T) {
	client := dummy.NewMockClient([]byte("GET / HTTP/1.1\r\nExpect: bogus\r\n\r\n")).Once()
	cfg := config.Default()
	pool := NewBufferPool(cfg, 1)
	r := &echoRouter{}

	engine := NewConnectionEngine(cfg, r, client, pool, nil, nil)
	engine.Serve()

	require.Equal(t, 0, r.requests)
	require.Contains(t, client.Written(), "417")
}
