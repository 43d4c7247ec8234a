package http

import (
	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/http/mime"
	"github.com/wireloom/wireloom/http/status"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
	"io"
)

type BodyCallback func([]byte) error

// Fetcher reads and returns pieces of a message body as they become available.
type Fetcher interface {
	Fetch() ([]byte, error)
}

type fetcher = Fetcher

type Body struct {
	fetcher
	request *Request
	cfg     *config.Config
	buff    []byte
	pending []byte
	error   error
}

// NewBody wraps a Fetcher implementation (the transport-level body reader) into the
// request-facing Body type. Reset must be called with the owning request before use.
func NewBody(cfg *config.Config, impl Fetcher) *Body {
	return &Body{
		fetcher: impl,
		cfg:     cfg,
	}
}

// Callback invokes the callback every time as there's a piece of body available
// for reading. If the callback returns an error, it'll be passed back to the caller.
// The callback is not notified when there's no more data or networking error has
// occurred.
//
// Please note: this method can be used only once.
func (b *Body) Callback(cb BodyCallback) error {
	if b.error != nil {
		return b.error
	}

	for {
		var data []byte
		data, b.error = b.Fetch()
		switch b.error {
		case nil:
		case io.EOF:
			return cb(data)
		default:
			return b.error
		}

		if b.error = cb(data); b.error != nil {
			return b.error
		}
	}
}

// Bytes returns the whole body at once in a byte representation.
func (b *Body) Bytes() ([]byte, error) {
	if len(b.buff) != 0 {
		return b.buff, nil
	}

	if b.error != nil {
		return nil, b.error
	}

	if b.buff == nil {
		b.buff = make([]byte, 0, b.cfg.Body.Form.BufferPrealloc)
	}

	for {
		var data []byte
		data, b.error = b.Fetch()
		b.buff = append(b.buff, data...)
		switch b.error {
		case nil:
		case io.EOF:
			return b.buff, nil
		default:
			return nil, b.error
		}
	}
}

// String returns the whole body at once in a string representation.
func (b *Body) String() (string, error) {
	bytes, err := b.Bytes()
	return uf.B2S(bytes), err
}

// Read implements the io.Reader interface.
func (b *Body) Read(into []byte) (n int, err error) {
	if len(b.pending) == 0 && b.error == nil {
		b.pending, b.error = b.Fetch()
	}

	n = copy(into, b.pending)
	b.pending = b.pending[n:]

	if len(b.pending) == 0 && b.error != nil {
		err = b.error
	}

	return n, err
}

// JSON convoys the request's body to a json unmarshaller automatically and behaves
// in a similar manner.
//
// Please note: this method cannot be used on requests with Content-Type incompatible
// with mime.JSON (in this case, status.ErrUnsupportedMediaType is returned).
func (b *Body) JSON(model any) error {
	if !mime.Complies(mime.JSON, b.request.ContentType) {
		return status.ErrUnsupportedMediaType
	}

	data, err := b.Bytes()
	if err != nil {
		return err
	}

	iterator := json.ConfigDefault.BorrowIterator(data)
	iterator.ReadVal(model)
	err = iterator.Error
	json.ConfigDefault.ReturnIterator(iterator)

	return err
}

// Discard discards the rest of the body (if any). If no networking error was encountered,
// nil is returned.
func (b *Body) Discard() error {
	for b.error == nil {
		_, b.error = b.Fetch()
	}

	if b.error == io.EOF {
		return nil
	}

	return b.error
}

// Error returns a previously encountered error, otherwise nil.
func (b *Body) Error() error {
	return b.error
}

// Reset binds the Body to a new request, discarding whatever remained unread of the
// previous one's body.
func (b *Body) Reset(request *Request) {
	b.request = request
	b.error = nil
	b.buff = b.buff[:0]
	b.pending = nil
}
