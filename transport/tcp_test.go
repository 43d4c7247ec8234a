package transport

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wireloom/wireloom/config"
	"github.com/stretchr/testify/require"
)

func TestTCP_StopInterruptsIdleConnections(t *testing.T) {
	tcp := NewTCP()
	require.NoError(t, tcp.Bind("127.0.0.1:0"))

	addr := tcp.l.(*net.TCPListener).Addr().String()

	var wg sync.WaitGroup
	wg.Add(1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- tcp.Listen(config.Default().NET, func(conn net.Conn) {
			defer wg.Done()

			buf := make([]byte, 1)
			_, err := conn.Read(buf)
			// with nothing ever written by the peer, only a forced deadline
			// (from Stop) or an actual timeout can end this Read.
			require.Error(t, err)
		})
	}()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// give the accept loop a moment to register the connection before draining.
	time.Sleep(50 * time.Millisecond)

	tcp.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "idle connection was not interrupted by Stop")
	}

	tcp.Close()
	<-errCh
}
