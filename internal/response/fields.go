package response

import (
	"io"

	"github.com/wireloom/wireloom/http/status"
)

const DefaultContentType = "text/html"

type Header struct {
	Key, Value string
}

// Attachment wraps an io.Reader carrying a response body streamed rather than buffered.
// A negative size means the length isn't known upfront, so chunked transfer encoding
// must be used to render it.
type Attachment struct {
	content io.Reader
	size    int
}

func NewAttachment(content io.Reader, size int) Attachment {
	return Attachment{
		content: content,
		size:    size,
	}
}

func (a Attachment) Content() io.Reader {
	return a.content
}

func (a Attachment) Size() int {
	return a.size
}

func (a Attachment) Close() {
	if closer, ok := a.content.(io.Closer); ok {
		_ = closer.Close()
	}
}

type Fields struct {
	Attachment       Attachment
	Status           status.Status
	ContentType      string
	TransferEncoding string
	Headers          []Header
	Body             []byte
	Code             status.Code
}

func (f *Fields) Clear() {
	f.Code = status.OK
	f.Status = ""
	f.ContentType = DefaultContentType
	f.TransferEncoding = ""
	f.Headers = f.Headers[:0]
	f.Body = nil
	f.Attachment = Attachment{}
}
