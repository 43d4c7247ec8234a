package address

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	DefaultAddr = "0.0.0.0"
	DefaultHost = DefaultAddr
)

// Addr is a parsed host:port pair, kept apart so callers don't need to re-split and
// re-validate the port on every use.
type Addr struct {
	Host string
	Port uint16
}

// Parse splits addr into its host and port. A missing host defaults to DefaultHost.
// The port is mandatory: unlike net.SplitHostPort, a bare host with no colon is
// rejected rather than silently accepted.
func Parse(addr string) (Addr, error) {
	colon := strings.LastIndexByte(addr, ':')
	if colon == -1 {
		return Addr{}, fmt.Errorf("no port given")
	}

	host, portStr := addr[:colon], addr[colon+1:]
	if len(host) == 0 {
		host = DefaultHost
	}

	port, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil || port > 65535 {
		return Addr{}, fmt.Errorf("invalid port: %s", portStr)
	}

	return Addr{Host: host, Port: uint16(port)}, nil
}

// Normalize prepends the default host to addr, if it holds a port only.
func Normalize(addr string) string {
	if len(stripPort(addr)) == 0 {
		return DefaultAddr + addr
	}

	return addr
}

func IsLocalhost(addr string) bool {
	return strings.EqualFold(stripPort(addr), "localhost")
}

func IsIP(addr string) bool {
	return net.ParseIP(stripPort(addr)) != nil
}

func stripPort(addr string) string {
	colon := strings.IndexByte(addr, ':')
	if colon != -1 {
		return addr[:colon]
	}

	return addr
}
