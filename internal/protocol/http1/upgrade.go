package http1

import "github.com/wireloom/wireloom/transport"

// UpgradeBridge transfers a connection's transport (and anything already read off
// the wire but not yet consumed by HTTP/1) to a successor protocol. transport.Client
// already carries an internal pending-bytes slot for this purpose (Pushback), so the
// bridge's only job is making sure leftover bytes end up there before the client
// changes hands.
type UpgradeBridge struct {
	client transport.Client
}

func NewUpgradeBridge(client transport.Client) *UpgradeBridge {
	return &UpgradeBridge{client: client}
}

// Handoff stages leftover for the successor's first read and returns the client for
// it to take ownership of.
func (u *UpgradeBridge) Handoff(leftover []byte) transport.Client {
	if len(leftover) > 0 {
		u.client.Pushback(leftover)
	}

	return u.client
}
