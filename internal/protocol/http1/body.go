package http1

import (
	"io"

	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/http/status"
	"github.com/wireloom/wireloom/transport"
	"github.com/indigo-web/chunkedbody"
)

// body is the transport-facing implementation of http.Fetcher. It pulls raw bytes off
// the client, unwraps chunked framing when needed, and stops handing data back once
// either the declared length or the configured ceiling is reached.
type body struct {
	client  transport.Client
	cfg     config.Body
	chunked *chunkedbody.Parser

	request        *http.Request
	pulled         uint64
	chunkable      bool
	expectContinue bool
	continued      bool
	sendContinue   func() error
}

// newBody wires sendContinue as the hook fired the first time this body's data is
// actually asked for, so "100 Continue" goes out on demand rather than the moment
// headers finish parsing (matching a reader that never touches the body never seeing
// the interim response at all).
func newBody(client transport.Client, cfg config.Body, sendContinue func() error) *body {
	return &body{
		client:       client,
		cfg:          cfg,
		chunked:      chunkedbody.NewParser(chunkedbody.DefaultSettings()),
		sendContinue: sendContinue,
	}
}

// Reset rebinds the body reader to a new request, ready to fetch its message body.
// expectContinue marks that the peer sent Expect: 100-continue and is holding its
// body back until it hears it.
func (b *body) Reset(request *http.Request, expectContinue bool) {
	b.request = request
	b.pulled = 0
	b.chunkable = request.Encoding.Chunked
	b.expectContinue = expectContinue
	b.continued = false
}

// awaitingContinue reports whether this body still owes the client a "100
// Continue" before any read of it would mean anything: true only when the
// request carried Expect: 100-continue and nothing has fetched from the body
// yet. A caller that's about to send the final response instead of reading the
// body must treat this case specially — the client is holding its body back
// waiting to hear "100 Continue" it will never receive now, so it won't send
// one, and trying to read here would just steal bytes off a stream the client
// hasn't put anything meaningful onto yet.
func (b *body) awaitingContinue() bool {
	return b.expectContinue && !b.continued
}

// Fetch returns the next available piece of the body. io.EOF marks a clean end
// (whether that's the declared Content-Length or the terminating chunk).
func (b *body) Fetch() ([]byte, error) {
	if b.expectContinue && !b.continued {
		b.continued = true

		if err := b.sendContinue(); err != nil {
			return nil, err
		}
	}

	if b.chunkable {
		return b.fetchChunked()
	}

	return b.fetchPlain()
}

func (b *body) fetchPlain() ([]byte, error) {
	remaining := uint64(b.request.ContentLength) - b.pulled
	if remaining == 0 {
		return nil, io.EOF
	}

	data, err := b.client.Read()
	if err != nil {
		return nil, err
	}

	if uint64(len(data)) > remaining {
		extra := data[remaining:]
		data = data[:remaining]
		b.client.Pushback(extra)
	}

	b.pulled += uint64(len(data))

	if b.pulled > b.cfg.MaxSize {
		return nil, status.ErrBodyTooLarge
	}

	if b.pulled >= uint64(b.request.ContentLength) {
		return data, io.EOF
	}

	return data, nil
}

func (b *body) fetchChunked() ([]byte, error) {
	data, err := b.client.Read()
	if err != nil {
		return nil, err
	}

	chunk, extra, err := b.chunked.Parse(data, false)
	b.client.Pushback(extra)
	b.pulled += uint64(len(chunk))

	if b.pulled > b.cfg.MaxSize {
		return nil, status.ErrBodyTooLarge
	}

	return chunk, err
}
