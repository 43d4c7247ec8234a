package http1

import (
	"testing"

	"github.com/wireloom/wireloom/config"
	"github.com/stretchr/testify/require"
)

func TestBufferPool_LineAndHeadersRoundtrip(t *testing.T) {
	pool := NewBufferPool(config.Default(), 2)

	line := pool.AcquireLine()
	line.Append([]byte("scratch"))
	pool.ReleaseLine(line)

	reused := pool.AcquireLine()
	require.Equal(t, 0, reused.SegmentLength())
}

func TestBufferPool_ResponseBufferRoundtrip(t *testing.T) {
	pool := NewBufferPool(config.Default(), 2)

	buff := pool.AcquireResponse()
	buff.SetBytes(append(buff.Bytes(), "leftover"...))

	pool.ReleaseResponse(buff)

	reacquired := pool.AcquireResponse()
	require.Empty(t, reacquired.Bytes())
}

func TestRetainedBuffer_SetBytesSurvivesGrowth(t *testing.T) {
	buff := newRetainedBuffer(make([]byte, 0, 4))
	grown := append(buff.Bytes(), []byte("hello world, this overflows four bytes")...)
	buff.SetBytes(grown)

	require.Equal(t, "hello world, this overflows four bytes", string(buff.Bytes()))
}
