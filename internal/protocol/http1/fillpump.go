package http1

import "github.com/wireloom/wireloom/transport"

// FillPump owns the read side of a connection. It exists as a distinct step between
// the raw transport and the parser so the connection engine's main loop reads as
// "pump, then parse" regardless of what the transport does underneath (a plain TCP
// read today; nothing stops a future transport from making this asynchronous).
type FillPump struct {
	client  transport.Client
	bytesIn uint64
	eof     bool
}

func NewFillPump(client transport.Client) *FillPump {
	return &FillPump{client: client}
}

// Fill blocks until the transport has more bytes, an error, or a clean EOF. The
// error or EOF is returned once; every subsequent call returns errPumpExhausted.
func (f *FillPump) Fill() ([]byte, error) {
	if f.eof {
		return nil, errPumpExhausted
	}

	data, err := f.client.Read()
	if err != nil {
		f.eof = true
		return nil, err
	}

	f.bytesIn += uint64(len(data))

	return data, nil
}

// BytesIn reports the total number of bytes pumped in over the connection's lifetime.
func (f *FillPump) BytesIn() uint64 {
	return f.bytesIn
}

// Exhausted reports whether the transport has already signalled EOF or an error.
func (f *FillPump) Exhausted() bool {
	return f.eof
}

var errPumpExhausted = pumpExhaustedError{}

type pumpExhaustedError struct{}

func (pumpExhaustedError) Error() string { return "fill pump: transport already at EOF" }
