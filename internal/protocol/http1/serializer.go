package http1

import (
	"io"
	"math/bits"
	"strconv"

	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/http/method"
	"github.com/wireloom/wireloom/http/proto"
	"github.com/wireloom/wireloom/http/status"
	"github.com/wireloom/wireloom/internal/response"
	"github.com/wireloom/wireloom/internal/strutil"
	"github.com/wireloom/wireloom/transport"
)

// Serializer renders an *http.Response into wire bytes and drives them onto the
// client through a growable buffer, switching between Content-Length and chunked
// framing depending on whether the body's length is known upfront.
type Serializer struct {
	cfg            *config.Config
	request        *http.Request
	client         transport.Client
	buff           []byte
	streamReadBuff []byte
	defaultHeaders defaultHeaders
}

func NewSerializer(cfg *config.Config, request *http.Request, client transport.Client, buff []byte) *Serializer {
	return &Serializer{
		cfg:            cfg,
		request:        request,
		client:         client,
		buff:           buff,
		defaultHeaders: preprocessDefaultHeaders(cfg.Headers.Default),
	}
}

// Upgrade writes (without flushing) a 101 Switching Protocols informational response.
func (s *Serializer) Upgrade() {
	s.appendProtocol(s.request.Protocol)
	s.buff = append(s.buff, "101 Switching Protocols\r\n"...)
	s.appendKnownHeader("Connection: ", "upgrade")
	s.appendKnownHeader("Upgrade: ", s.request.Upgrade.String())
	s.crlf()
}

// Continue writes (and flushes) a 100 Continue informational response.
func (s *Serializer) Continue() error {
	s.appendProtocol(s.request.Protocol)
	s.buff = append(s.buff, "100 Continue\r\n\r\n"...)
	return s.flush()
}

// Write renders resp as the full response to the current request and flushes it.
func (s *Serializer) Write(protocol proto.Protocol, resp *http.Response) error {
	fields := resp.Reveal()

	s.appendProtocol(protocol)
	s.appendStatus(fields)
	s.appendContentType(fields)
	s.appendHeaders(fields)

	err := s.writeBody(fields)
	if err != nil {
		return err
	}

	err = s.flush()
	s.cleanup()

	return err
}

func (s *Serializer) writeBody(fields *response.Fields) (err error) {
	attachment := fields.Attachment
	if attachment.Content() == nil {
		if s.request.Method == method.HEAD {
			s.appendContentLength(int64(len(fields.Body)))
			s.crlf()
			return nil
		}

		s.appendContentLength(int64(len(fields.Body)))
		s.crlf()

		return s.safeAppend(fields.Body)
	}

	stream := attachment.Content()
	length := attachment.Size()

	defer func() {
		attachment.Close()
	}()

	var encoder io.WriteCloser
	var counter *countingWriter

	if length <= 0 {
		encoder = chunkedWriter{s}
		s.appendKnownHeader("Transfer-Encoding: ", "chunked")
	} else {
		counter = &countingWriter{next: identityWriter{s}}
		encoder = counter
		s.appendContentLength(int64(length))
	}

	s.crlf()

	if s.request.Method == method.HEAD {
		return nil
	}

	defer func() {
		if cerr := encoder.Close(); cerr != nil && err == nil {
			err = cerr
		}

		if err == nil && counter != nil && counter.n != int64(length) {
			err = errContentLengthMismatch
		}
	}()

	if wt, ok := stream.(io.WriterTo); ok {
		_, err = wt.WriteTo(encoder)
		return err
	}

	if cap(s.streamReadBuff) < cap(s.buff) {
		s.streamReadBuff = make([]byte, cap(s.buff))
	}

	for {
		n, rerr := stream.Read(s.streamReadBuff[:cap(s.streamReadBuff)])
		if n > 0 {
			if _, werr := encoder.Write(s.streamReadBuff[:n]); werr != nil {
				return werr
			}
		}

		switch rerr {
		case nil:
		case io.EOF:
			return nil
		default:
			return rerr
		}
	}
}

// safeAppend appends data to the buffer, flushing whenever the buffer's capacity is exhausted.
func (s *Serializer) safeAppend(data []byte) error {
	for len(data) > 0 {
		free := cap(s.buff) - len(s.buff)

		if len(data) <= free {
			s.buff = append(s.buff, data...)
			return nil
		}

		s.buff = append(s.buff, data[:free]...)
		if err := s.flush(); err != nil {
			return err
		}

		data = data[free:]
	}

	return nil
}

func (s *Serializer) flush() (err error) {
	if len(s.buff) > 0 {
		_, err = s.client.Write(s.buff)
		s.buff = s.buff[:0]
	}

	return err
}

func (s *Serializer) appendStatus(fields *response.Fields) {
	if code := status.StringCode(fields.Code); len(code) > 0 {
		s.buff = append(s.buff, code...)
	} else {
		s.buff = strconv.AppendUint(s.buff, uint64(fields.Code), 10)
	}

	s.sp()

	statusText := fields.Status
	if len(statusText) == 0 {
		statusText = status.FromCode(fields.Code)
	}

	s.buff = append(s.buff, statusText...)
	s.crlf()
}

func (s *Serializer) appendContentType(fields *response.Fields) {
	if len(fields.ContentType) == 0 {
		return
	}

	s.defaultHeaders.Exclude("Content-Type")
	s.appendKnownHeader("Content-Type: ", fields.ContentType)
}

func (s *Serializer) appendHeaders(fields *response.Fields) {
	for _, header := range fields.Headers {
		s.defaultHeaders.Exclude(header.Key)
		s.appendHeader(header)
	}

	for _, header := range s.defaultHeaders {
		if !header.Excluded {
			s.buff = append(s.buff, header.Full...)
		}
	}
}

func (s *Serializer) appendHeader(header response.Header) {
	s.buff = append(s.buff, header.Key...)
	s.colonsp()
	s.buff = append(s.buff, header.Value...)
	s.crlf()
}

// appendKnownHeader differs from appendHeader in that key already includes ": ".
func (s *Serializer) appendKnownHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, value...)
	s.crlf()
}

func (s *Serializer) appendContentLength(value int64) {
	s.buff = append(s.buff, "Content-Length: "...)
	s.buff = strconv.AppendUint(s.buff, uint64(value), 10)
	s.crlf()
}

func (s *Serializer) appendProtocol(protocol proto.Protocol) {
	if protocol == proto.Unknown {
		protocol = proto.HTTP11
	}

	s.buff = append(s.buff, protocol.String()...)
	s.sp()
}

func (s *Serializer) sp() {
	s.buff = append(s.buff, ' ')
}

func (s *Serializer) colonsp() {
	s.buff = append(s.buff, ':', ' ')
}

const crlf = "\r\n"

func (s *Serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}

func (s *Serializer) cleanup() {
	s.defaultHeaders.Reset()
}

type chunkedWriter struct {
	s *Serializer
}

func (c chunkedWriter) maxhex(n int) int {
	return (bits.Len64(uint64(n))-1)>>2 + 1
}

func (c chunkedWriter) Write(b []byte) (n int, err error) {
	blen := len(b)

	for len(b) > 0 {
		chunk := b
		const maxChunk = 4096
		if len(chunk) > maxChunk {
			chunk = chunk[:maxChunk]
		}

		hexlen := strconv.FormatInt(int64(len(chunk)), 16)
		c.s.buff = append(c.s.buff, hexlen...)
		c.s.buff = append(c.s.buff, crlf...)
		c.s.buff = append(c.s.buff, chunk...)
		c.s.buff = append(c.s.buff, crlf...)

		if err = c.s.flush(); err != nil {
			return 0, err
		}

		b = b[len(chunk):]
	}

	return blen, nil
}

func (c chunkedWriter) Close() error {
	c.s.buff = append(c.s.buff, "0\r\n\r\n"...)
	return c.s.flush()
}

type identityWriter struct {
	s *Serializer
}

func (i identityWriter) Write(p []byte) (int, error) {
	err := i.s.safeAppend(p)
	return len(p), err
}

func (i identityWriter) Close() error {
	return i.s.flush()
}

// countingWriter tracks how many bytes actually made it onto the wire through an
// identityWriter, so writeBody can tell a stream that under-delivered on its declared
// Content-Length from one that matched it exactly.
type countingWriter struct {
	next io.WriteCloser
	n    int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.next.Write(p)
	c.n += int64(n)
	return n, err
}

func (c *countingWriter) Close() error {
	return c.next.Close()
}

var errContentLengthMismatch = contentLengthMismatchError{}

// contentLengthMismatchError signals that a response's attachment produced fewer (or
// more) bytes than the Content-Length already flushed to the client. There is no
// status code to answer with at that point, since headers are already on the wire; the
// only correct move is to fail the exchange and let the caller close the connection.
type contentLengthMismatchError struct{}

func (contentLengthMismatchError) Error() string {
	return "http1: response body did not match its declared Content-Length"
}

func preprocessDefaultHeaders(headers map[string]string) defaultHeaders {
	processed := make(defaultHeaders, 0, len(headers))

	for key, value := range headers {
		serialized := key + ": " + value + crlf
		processed = append(processed, defaultHeader{
			Key:  serialized[:len(key)],
			Full: serialized,
		})
	}

	return processed
}

type defaultHeader struct {
	Excluded bool
	Key      string
	Full     string
}

type defaultHeaders []defaultHeader

func (d defaultHeaders) Exclude(key string) {
	for i, header := range d {
		if strutil.CmpFold(header.Key, key) {
			header.Excluded = true
			d[i] = header
			return
		}
	}
}

func (d defaultHeaders) Reset() {
	for i := range d {
		d[i].Excluded = false
	}
}
