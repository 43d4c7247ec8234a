package http1

import (
	"bytes"
	"crypto/tls"
	"io"
	"sync/atomic"

	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/http/method"
	"github.com/wireloom/wireloom/http/proto"
	"github.com/wireloom/wireloom/http/status"
	"github.com/wireloom/wireloom/internal/construct"
	"github.com/wireloom/wireloom/router"
	"github.com/wireloom/wireloom/transport"
)

// h2cPreamble is what a client sends instead of a request line when it wants to
// speak cleartext HTTP/2 straight away, with no Upgrade negotiation.
const h2cPreamble = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// Upgrader is given a chance to take over the connection whenever a request either
// sends the h2c preamble or carries an Upgrade header naming a protocol the engine
// recognizes (HTTP/1.x or h2c). Returning true means it took ownership (of client and any leftover bytes);
// the engine stops driving the connection immediately after.
type Upgrader func(request *http.Request, client transport.Client, leftover []byte) (handled bool)

// ConnectionEngine drives one connection through as many HTTP/1 exchanges as it
// stays open and persistent for: read a request, dispatch it to the router, write
// the response, and either serve the next pipelined request or wait for one.
type ConnectionEngine struct {
	cfg        *config.Config
	router     router.Router
	client     transport.Client
	request    *http.Request
	body       *body
	pump       *FillPump
	parser     *Parser
	serializer *Serializer
	bridge     *UpgradeBridge
	upgrader   Upgrader
	buffers    *BufferPool
	line, hdr  *bufferGuard
	respBuff   *RetainedBuffer
	encryption uint16
	draining   *atomic.Bool
}

// bufferGuard defers releasing a pooled buffer until the engine closes.
type bufferGuard struct {
	release func()
}

// NewConnectionEngine wires up one connection's worth of parsing/dispatch/
// serialization state. draining is shared with the transport.Supervisor that
// accepted this connection: once GracefulStop/Stop flips it, every exchange this
// engine decides from that point on comes back non-persistent, so the connection
// winds down after its current response instead of riding out the idle timeout.
// A nil draining is treated as "never draining" (used by tests that construct an
// engine outside of App/Supervisor).
func NewConnectionEngine(
	cfg *config.Config,
	r router.Router,
	client transport.Client,
	buffers *BufferPool,
	upgrader Upgrader,
	draining *atomic.Bool,
) *ConnectionEngine {
	request := construct.Request(cfg, client)

	line := buffers.AcquireLine()
	hdr := buffers.AcquireHeaders()
	respBuff := buffers.AcquireResponse()

	serializer := NewSerializer(cfg, request, client, respBuff.Bytes())

	fetcher := newBody(client, cfg.Body, serializer.Continue)
	request.Body = http.NewBody(cfg, fetcher)

	var encryption uint16
	if tlsConn, ok := client.Conn().(*tls.Conn); ok {
		encryption = tlsConn.ConnectionState().Version
	}

	return &ConnectionEngine{
		cfg:        cfg,
		router:     r,
		client:     client,
		request:    request,
		body:       fetcher,
		pump:       NewFillPump(client),
		parser:     NewParser(cfg, request, line, hdr),
		serializer: serializer,
		bridge:     NewUpgradeBridge(client),
		upgrader:   upgrader,
		buffers:    buffers,
		line:       &bufferGuard{release: func() { buffers.ReleaseLine(line) }},
		hdr:        &bufferGuard{release: func() { buffers.ReleaseHeaders(hdr) }},
		respBuff:   respBuff,
		encryption: encryption,
		draining:   draining,
	}
}

// isDraining reports whether this connection's supervisor has begun a graceful
// shutdown. Kept as a method rather than an inline nil-check at each call site.
func (e *ConnectionEngine) isDraining() bool {
	return e.draining != nil && e.draining.Load()
}

// Serve runs exchanges to completion, one after another, until the connection is
// closed, fails, upgrades, or turns out not to be persistent.
func (e *ConnectionEngine) Serve() {
	defer e.close()

	for {
		persistent, err := e.exchange()
		if err != nil || !persistent {
			return
		}
	}
}

// exchange runs a single request/response cycle. persistent tells the caller
// whether it's safe to start another one on the same connection.
func (e *ConnectionEngine) exchange() (persistent bool, err error) {
	req := e.request

	for {
		data, ferr := e.pump.Fill()
		if ferr != nil {
			if ferr != io.EOF {
				if e.isDraining() {
					e.router.OnError(req, status.ErrGracefulShutdown)
				} else {
					e.router.OnError(req, status.ErrCloseConnection)
				}
			}

			return false, ferr
		}

		if req.Method == method.Unknown && bytes.HasPrefix(data, []byte("PRI ")) {
			if handled, herr := e.tryH2C(data); handled || herr != nil {
				return false, herr
			}
		}

		done, extra, perr := e.parser.Parse(data)
		if perr != nil {
			resp := notNil(req, e.router.OnError(req, perr))
			_ = e.serializer.Write(req.Protocol, resp)
			return false, perr
		}

		if !done {
			continue
		}

		e.client.Pushback(extra)

		return e.dispatch()
	}
}

// tryH2C recognizes the cleartext HTTP/2 connection preface. Since this engine has
// no h2c successor of its own, it defers to the configured Upgrader; absent one (or
// on its refusal) it synthesizes the 426 the spec calls for and ends the connection.
func (e *ConnectionEngine) tryH2C(data []byte) (handled bool, err error) {
	if !bytes.HasPrefix(data, []byte(h2cPreamble)) {
		return false, nil
	}

	leftover := data[len(h2cPreamble):]

	if e.upgrader != nil && e.upgrader(e.request, e.bridge.Handoff(leftover), leftover) {
		return true, nil
	}

	resp := e.request.Respond().Error(status.ErrUpgradeRequired)
	_ = e.serializer.Write(proto.HTTP11, resp)

	return true, status.ErrUpgradeRequired
}

func (e *ConnectionEngine) dispatch() (persistent bool, err error) {
	req := e.request
	state := Decide(e.cfg.HTTP.KeepAlive && !e.isDraining(), req)

	if state.ExpectUnknown {
		resp := req.Respond().Error(status.ErrExpectationFailed)
		_ = e.serializer.Write(req.Protocol, resp)
		return false, status.ErrExpectationFailed
	}

	if state.Upgrade != proto.Unknown && e.upgrader != nil {
		if e.upgrader(req, e.bridge.Handoff(nil), nil) {
			return false, nil
		}
	}

	// CONNECT names its own target authority in the request line; every other method
	// inherits scheme/authority from the connection, falling back to the local address
	// when the client sent no Host header.
	if req.Method != method.CONNECT {
		if e.encryption != 0 {
			req.Scheme = "https"
		} else {
			req.Scheme = "http"
		}

		if req.Authority == "" {
			req.Authority = e.client.Conn().LocalAddr().String()
		}
	}

	req.Env.Encryption = e.encryption

	e.body.Reset(req, state.Expect&expect100Continue != 0)
	req.Body.Reset(req)

	resp := notNil(req, e.router.OnRequest(req))

	// A handler that answers without ever reading a body the client is still
	// holding back behind "100 Continue" leaves that continue permanently
	// unsent: the final response about to go out preempts it. The client
	// won't send a body it was never told to continue, so nothing is safe to
	// discard here, and the connection can't be trusted to stay in sync for a
	// next pipelined request.
	awaitingContinue := e.body.awaitingContinue()
	if awaitingContinue {
		state.Persistent = false
	}

	switch {
	case !state.Persistent:
		resp = resp.Header("Connection", "close")
	case req.Protocol == proto.HTTP10:
		resp = resp.Header("Connection", "keep-alive")
	}

	if req.Hijacked() {
		return false, nil
	}

	if err = e.serializer.Write(req.Protocol, resp); err != nil {
		e.router.OnError(req, status.ErrCloseConnection)
		return false, err
	}

	if !awaitingContinue {
		if derr := req.Body.Discard(); derr != nil && derr != io.EOF {
			return false, derr
		}
	}

	req.Reset()

	return state.Persistent, nil
}

func (e *ConnectionEngine) close() {
	e.line.release()
	e.hdr.release()
	e.respBuff.SetBytes(e.serializer.buff[:0])
	e.buffers.ReleaseResponse(e.respBuff)
	_ = e.client.Close()
}

func notNil(req *http.Request, resp *http.Response) *http.Response {
	if resp != nil {
		return resp
	}

	return req.Respond()
}
