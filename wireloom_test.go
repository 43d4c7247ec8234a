package wireloom

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	whttp "github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/http/status"
	"github.com/wireloom/wireloom/router"
)

const testAddr = "localhost:16130"

func TestApp_ServeAndGracefulStop(t *testing.T) {
	r := router.Func(func(request *whttp.Request) *whttp.Response {
		switch request.Path {
		case "/simple":
			return request.Respond().String("hi")
		case "/echo":
			body, err := request.Body.Bytes()
			require.NoError(t, err)
			return request.Respond().String(string(body))
		default:
			return request.Respond().Code(status.NotFound)
		}
	})

	app := New(testAddr)

	done := make(chan error, 1)
	go func() {
		done <- app.Serve(r)
	}()

	waitForListener(t, testAddr)

	resp, err := http.Get("http://" + testAddr + "/simple")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "hi", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	echoResp, err := http.Post("http://"+testAddr+"/echo", "text/plain", stringReader("round trip"))
	require.NoError(t, err)
	echoBody, err := io.ReadAll(echoResp.Body)
	require.NoError(t, err)
	require.NoError(t, echoResp.Body.Close())
	require.Equal(t, "round trip", string(echoBody))

	app.GracefulStop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "server did not stop in time")
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err := http.Get("http://" + addr + "/simple"); err == nil {
			_ = resp.Body.Close()
			return
		}

		time.Sleep(10 * time.Millisecond)
	}
}

type stringReaderImpl struct {
	s string
	i int
}

func stringReader(s string) *stringReaderImpl {
	return &stringReaderImpl{s: s}
}

func (r *stringReaderImpl) Read(p []byte) (int, error) {
	if r.i >= len(r.s) {
		return 0, io.EOF
	}

	n := copy(p, r.s[r.i:])
	r.i += n

	return n, nil
}
