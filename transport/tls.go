package transport

import (
	"crypto/tls"
	"net"
)

type TLS struct {
	certs []tls.Certificate
	// GetCertificate, when set, overrides certs entirely and is passed straight
	// through to the *tls.Config, letting a certificate manager (e.g. ACME) pick
	// the certificate per handshake instead of serving a fixed list.
	GetCertificate func(*tls.ClientHelloInfo) (*tls.Certificate, error)
	TCP
}

func NewTLS(certs []tls.Certificate) *TLS {
	return &TLS{certs: certs}
}

func (t *TLS) Bind(addr string) error {
	tcp, err := bindTCP(addr)
	if err != nil {
		return err
	}

	l := tls.NewListener(tcp, &tls.Config{
		Certificates:   t.certs,
		GetCertificate: t.GetCertificate,
	})
	t.TCP = newTCP(tlsAdapter{tcp, l})

	return nil
}

type tlsAdapter struct {
	*net.TCPListener
	tls net.Listener
}

func (t tlsAdapter) Accept() (net.Conn, error) {
	return t.tls.Accept()
}
