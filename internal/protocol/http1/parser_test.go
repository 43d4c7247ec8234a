package http1

import (
	"fmt"
	"testing"

	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/http/method"
	"github.com/wireloom/wireloom/http/proto"
	"github.com/wireloom/wireloom/http/status"
	"github.com/wireloom/wireloom/internal/construct"
	"github.com/wireloom/wireloom/transport/dummy"
	"github.com/dchest/uniuri"
	"github.com/stretchr/testify/require"
)

func newParser(cfg *config.Config) (*Parser, *http.Request) {
	req := construct.Request(cfg, dummy.NewNopClient())
	headersBuff, lineBuff := construct.Buffers(cfg)

	return NewParser(cfg, req, lineBuff, headersBuff), req
}

func TestParser_SimpleGET(t *testing.T) {
	p, req := newParser(config.Default())

	done, extra, err := p.Parse([]byte("GET /path HTTP/1.1\r\nHost: h\r\n\r\nextra"))
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, "extra", string(extra))
	require.Equal(t, method.GET, req.Method)
	require.Equal(t, "/path", req.Path)
	require.Equal(t, proto.HTTP11, req.Protocol)
	require.Equal(t, "h", req.Headers.Value("Host"))
}

func TestParser_QueryParams(t *testing.T) {
	p, req := newParser(config.Default())

	done, _, err := p.Parse([]byte("GET /search?q=go+lang&empty HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, "/search", req.Path)
	require.Equal(t, "go lang", req.Params.Value("q"))
	require.True(t, req.Params.Has("empty"))
}

func TestParser_ChunkedOverridesContentLength(t *testing.T) {
	p, req := newParser(config.Default())

	done, _, err := p.Parse([]byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, req.Encoding.Chunked)
}

func TestParser_ContentLength(t *testing.T) {
	p, req := newParser(config.Default())

	done, _, err := p.Parse([]byte("POST / HTTP/1.1\r\nContent-Length: 42\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, 42, req.ContentLength)
}

func TestParser_ByteAtATime(t *testing.T) {
	p, req := newParser(config.Default())
	raw := []byte("GET /x HTTP/1.1\r\nHost: example\r\n\r\n")

	var (
		done bool
		err  error
	)

	for i := 0; i < len(raw) && !done; i++ {
		done, _, err = p.Parse(raw[i : i+1])
		require.NoError(t, err)
	}

	require.True(t, done)
	require.Equal(t, "/x", req.Path)
	require.Equal(t, "example", req.Headers.Value("Host"))
}

func TestParser_UnknownMethod(t *testing.T) {
	p, _ := newParser(config.Default())

	_, _, err := p.Parse([]byte("BOGUS / HTTP/1.1\r\n\r\n"))
	require.EqualError(t, err, status.ErrMethodNotImplemented.Error())
}

func TestParser_BadVersion(t *testing.T) {
	p, _ := newParser(config.Default())

	_, _, err := p.Parse([]byte("GET / HTTP/9.9\r\n\r\n"))
	require.EqualError(t, err, status.ErrHTTPVersionNotSupported.Error())
}

func TestParser_TooManyHeaders(t *testing.T) {
	cfg := config.Default()
	cfg.Headers.Number.Maximal = 2
	p, _ := newParser(cfg)

	req := "GET / HTTP/1.1\r\n"
	for i := 0; i < 5; i++ {
		req += fmt.Sprintf("%s: %s\r\n", genHeader(), genHeader())
	}
	req += "\r\n"

	_, _, err := p.Parse([]byte(req))
	require.EqualError(t, err, status.ErrTooManyHeaders.Error())
}

func TestParser_ResetBetweenExchanges(t *testing.T) {
	p, req := newParser(config.Default())

	done, extra, err := p.Parse([]byte("GET /one HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, done)
	require.Empty(t, extra)

	req.Reset()

	done, _, err = p.Parse([]byte("GET /two HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, "/two", req.Path)
}

func genHeader() string {
	return fmt.Sprintf("X-%s", uniuri.NewLen(8))
}
