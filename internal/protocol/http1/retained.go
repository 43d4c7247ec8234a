package http1

import (
	"github.com/wireloom/wireloom/config"
	"github.com/wireloom/wireloom/internal/buffer"
	"github.com/wireloom/wireloom/internal/pool"
)

// RetainedBuffer is the response-rendering scratch buffer a connection acquires
// from its BufferPool for as long as it's alive. Response writes in this engine are
// synchronous and complete before Serializer.Write returns, so exactly one owner
// ever holds the buffer at a time; refs exists so that a second release of the same
// buffer can't return it to the pool twice, not to support concurrent sharing.
type RetainedBuffer struct {
	mem  []byte
	refs int32
}

func newRetainedBuffer(mem []byte) *RetainedBuffer {
	return &RetainedBuffer{mem: mem, refs: 1}
}

// Bytes exposes the backing slice for writing into.
func (b *RetainedBuffer) Bytes() []byte {
	return b.mem
}

// SetBytes updates the backing slice after growth or truncation.
func (b *RetainedBuffer) SetBytes(mem []byte) {
	b.mem = mem
}

// release drops the owner's reference and reports whether it was the last (always
// true for a single call from a fresh Acquire; guards against releasing twice).
func (b *RetainedBuffer) release() bool {
	b.refs--
	return b.refs == 0
}

// BufferPool hands out the pooled scratch buffers a connection needs: two for the
// parser (request line and header staging) and one for the serializer (rendering the
// response before it's flushed to the socket). Buffers are returned to their pool as
// soon as a connection is torn down, so a busy server reuses a small, steady-state
// set of allocations instead of growing one per connection.
type BufferPool struct {
	cfg  *config.Config
	line pool.ObjectPool[*buffer.Buffer]
	hdr  pool.ObjectPool[*buffer.Buffer]
	resp pool.ObjectPool[*RetainedBuffer]
}

func NewBufferPool(cfg *config.Config, size int) *BufferPool {
	return &BufferPool{
		cfg:  cfg,
		line: pool.NewObjectPool[*buffer.Buffer](size),
		hdr:  pool.NewObjectPool[*buffer.Buffer](size),
		resp: pool.NewObjectPool[*RetainedBuffer](size),
	}
}

func (p *BufferPool) AcquireLine() *buffer.Buffer {
	if b := p.line.Acquire(); b != nil {
		return b
	}

	b := buffer.New(p.cfg.URI.RequestLineSize.Default, p.cfg.URI.RequestLineSize.Maximal)
	return &b
}

func (p *BufferPool) ReleaseLine(b *buffer.Buffer) {
	b.Clear()
	p.line.Release(b)
}

func (p *BufferPool) AcquireHeaders() *buffer.Buffer {
	if b := p.hdr.Acquire(); b != nil {
		return b
	}

	b := buffer.New(p.cfg.Headers.Space.Default, p.cfg.Headers.Space.Maximal)
	return &b
}

func (p *BufferPool) ReleaseHeaders(b *buffer.Buffer) {
	b.Clear()
	p.hdr.Release(b)
}

func (p *BufferPool) AcquireResponse() *RetainedBuffer {
	if b := p.resp.Acquire(); b != nil {
		b.refs = 1
		return b
	}

	return newRetainedBuffer(make([]byte, 0, p.cfg.HTTP.ResponseBuffSize))
}

// ReleaseResponse drops the caller's reference, returning the buffer to the pool
// only once no other collaborator still retains it.
func (p *BufferPool) ReleaseResponse(b *RetainedBuffer) {
	if b.release() {
		b.mem = b.mem[:0]
		p.resp.Release(b)
	}
}
