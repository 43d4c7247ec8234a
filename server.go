// Package wireloom assembles a connection engine, a set of transports and an
// application router into a running server.
package wireloom

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/internal/address"
	"github.com/wireloom/wireloom/internal/construct"
	"github.com/wireloom/wireloom/internal/protocol/http1"
	"github.com/wireloom/wireloom/router"
	"github.com/wireloom/wireloom/transport"
)

type hooks struct {
	onStart, onStop func()
}

// pendingListener records a bind request made before the router is known. It's
// resolved into an actual transport.Supervisor.Add call once Serve is invoked.
type pendingListener struct {
	addr string
	t    transport.Transport
}

// App is the entry point for wiring a router up to one or more network listeners.
// Nothing binds a socket until Serve is called: TCP, TLS, HTTPS and AutoHTTPS only
// record intent, so that Tune and Upgrade may still be called in any order beforehand.
type App struct {
	addr     address.Addr
	cfg      *config.Config
	upgrader http1.Upgrader
	hooks    hooks
	pending  []pendingListener
	sup      transport.Supervisor
}

// New creates an App bound to addr (host:port). addr must carry a port; a missing
// host defaults to all interfaces.
func New(addr string) *App {
	a, err := address.Parse(addr)
	if err != nil {
		panic(fmt.Sprintf("wireloom: %s", err))
	}

	return &App{
		addr: a,
		cfg:  config.Default(),
	}
}

// Tune replaces the default configuration wholesale.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Upgrade registers the callback consulted whenever a request sends the h2c preamble
// or carries an Upgrade header naming a protocol the HTTP/1 engine recognizes.
func (a *App) Upgrade(u http1.Upgrader) *App {
	a.upgrader = u
	return a
}

// NotifyOnStart registers cb to run once, right before the first listener starts
// accepting connections.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.onStart = cb
	return a
}

// NotifyOnStop registers cb to run once Serve returns, regardless of why.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.onStop = cb
	return a
}

// TCP queues a plaintext listener on port.
func (a *App) TCP(port uint16) *App {
	return a.bind(port, transport.NewTCP())
}

// TLS queues a listener on port serving TLS with the given certificates.
func (a *App) TLS(port uint16, certs []tls.Certificate) *App {
	return a.bind(port, transport.NewTLS(certs))
}

// HTTPS queues a TLS listener on port, loading its certificate and key from disk.
func (a *App) HTTPS(port uint16, certFile, keyFile string) *App {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		panic(fmt.Sprintf("wireloom: loading certificate: %s", err))
	}

	return a.TLS(port, []tls.Certificate{cert})
}

// AutoHTTPS queues a TLS listener on port whose certificate is obtained automatically:
// via ACME (Let's Encrypt) for a real domain, or a locally-cached self-signed
// certificate when the app is bound to localhost.
func (a *App) AutoHTTPS(port uint16) *App {
	if address.IsLocalhost(a.addr.Host) {
		cert, err := generateSelfSignedCert()
		if err != nil {
			panic(fmt.Sprintf("wireloom: generating self-signed certificate: %s", err))
		}

		return a.TLS(port, []tls.Certificate{cert})
	}

	manager := autocertManager(a.addr.Host)

	return a.TLS(port, nil).useGetCertificate(manager.GetCertificate)
}

// useGetCertificate swaps the most recently queued TLS listener's static certificate
// list for a dynamic autocert lookup. It exists only to let AutoHTTPS reuse TLS's
// bookkeeping instead of duplicating it.
func (a *App) useGetCertificate(get func(*tls.ClientHelloInfo) (*tls.Certificate, error)) *App {
	if len(a.pending) == 0 {
		return a
	}

	last := a.pending[len(a.pending)-1]
	if t, ok := last.t.(*transport.TLS); ok {
		t.GetCertificate = get
	}

	return a
}

func (a *App) bind(port uint16, t transport.Transport) *App {
	addr := fmt.Sprintf("%s:%d", a.addr.Host, port)
	a.pending = append(a.pending, pendingListener{addr: addr, t: t})

	return a
}

// Serve starts every queued listener and blocks until the server stops, either
// because a listener failed or GracefulStop/Stop was called from another goroutine.
func (a *App) Serve(r router.Router) error {
	if len(a.pending) == 0 {
		a.TCP(a.addr.Port)
	}

	pool := http1.NewBufferPool(a.cfg, 128)
	sup := transport.NewSupervisor()

	draining := sup.Draining()

	for _, p := range a.pending {
		cb := a.connCallback(r, pool, draining)

		if err := sup.Add(p.addr, p.t, cb); err != nil {
			return err
		}
	}

	if a.hooks.onStart != nil {
		a.hooks.onStart()
	}

	if a.hooks.onStop != nil {
		defer a.hooks.onStop()
	}

	a.sup = sup

	return sup.Run(a.cfg.NET)
}

func (a *App) connCallback(r router.Router, pool *http1.BufferPool, draining *atomic.Bool) func(net.Conn) {
	return func(conn net.Conn) {
		client := construct.Client(a.cfg.NET, conn)
		engine := http1.NewConnectionEngine(a.cfg, r, client, pool, a.upgrader, draining)
		engine.Serve()

		if a.cfg.HTTP.OnDisconnect != nil {
			a.cfg.HTTP.OnDisconnect(conn.RemoteAddr())
		}
	}
}

// GracefulStop stops every listener from accepting new connections and waits for
// connections already in flight to finish on their own.
func (a *App) GracefulStop() {
	a.sup.Stop()
}

// Stop is an alias of GracefulStop; the engine has no forceful mid-exchange
// interrupt to offer beyond what closing the underlying listeners already gives.
func (a *App) Stop() {
	a.sup.Stop()
}
