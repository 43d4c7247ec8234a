package transport

import (
	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/internal/timer"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

type TCP struct {
	l      listener
	wg     *sync.WaitGroup
	stop   *atomic.Bool
	connMu *sync.Mutex
	conns  map[net.Conn]struct{}
}

func NewTCP() *TCP {
	tcp := newTCP(nil)
	return &tcp
}

func newTCP(l listener) TCP {
	return TCP{
		l:      l,
		wg:     new(sync.WaitGroup),
		stop:   new(atomic.Bool),
		connMu: new(sync.Mutex),
		conns:  make(map[net.Conn]struct{}),
	}
}

func bindTCP(addr string) (*net.TCPListener, error) {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", tcpaddr)
}

func (t *TCP) Bind(addr string) (err error) {
	t.l, err = bindTCP(addr)
	return err
}

func (t *TCP) Listen(cfg config.NET, cb func(conn net.Conn)) error {
	for !t.stop.Load() {
		err := t.l.SetDeadline(timer.Now().Add(cfg.AcceptLoopInterruptPeriod))
		if err != nil {
			return err
		}

		conn, err := t.l.Accept()
		if err != nil {
			if err.(*net.OpError).Err.Error() == os.ErrDeadlineExceeded.Error() {
				continue
			}

			return err
		}

		t.track(conn)

		go func(conn net.Conn) {
			t.wg.Add(1)
			cb(conn)
			_ = conn.Close()
			t.untrack(conn)
			t.wg.Done()
		}(conn)
	}

	return nil
}

func (t *TCP) track(conn net.Conn) {
	t.connMu.Lock()
	t.conns[conn] = struct{}{}
	t.connMu.Unlock()
}

func (t *TCP) untrack(conn net.Conn) {
	t.connMu.Lock()
	delete(t.conns, conn)
	t.connMu.Unlock()
}

// Stop halts the accept loop and nudges every connection currently idle between
// exchanges to notice the shutdown immediately, instead of leaving it blocked in
// its read until the connection's own idle timeout fires. A connection with a
// response actually in flight is unaffected: forcing the read deadline only cuts
// short a wait for the *next* request, not a write already underway.
func (t *TCP) Stop() {
	t.stop.Store(true)

	t.connMu.Lock()
	for conn := range t.conns {
		_ = conn.SetReadDeadline(timer.Now())
	}
	t.connMu.Unlock()
}

func (t *TCP) Close() {
	_ = t.l.Close()
}

func (t *TCP) Wait() {
	t.wg.Wait()
}
