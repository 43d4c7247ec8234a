package construct

import (
	"net"

	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/internal/buffer"
	"github.com/wireloom/wireloom/kv"
	"github.com/wireloom/wireloom/transport"
)

func Request(cfg *config.Config, client transport.Client) *http.Request {
	headers := kv.NewPrealloc(int(cfg.Headers.Number.Default))
	params := kv.NewPrealloc(cfg.URI.ParamsPrealloc)
	vars := kv.New()
	request := http.NewRequest(http.NewResponse(), client, headers, params, vars)

	return request
}

func Client(cfg config.NET, conn net.Conn) transport.Client {
	readBuff := make([]byte, cfg.ReadBufferSize)

	return transport.NewClient(conn, cfg.ReadTimeout, readBuff)
}

func Buffers(s *config.Config) (headersBuff, statusBuff *buffer.Buffer) {
	return buffer.New(s.Headers.Space.Default, s.Headers.Space.Maximal),
		buffer.New(s.URI.RequestLineSize.Default, s.URI.RequestLineSize.Maximal)
}
