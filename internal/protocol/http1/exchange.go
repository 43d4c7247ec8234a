package http1

import (
	"strings"

	"github.com/wireloom/wireloom/http"
	"github.com/wireloom/wireloom/http/method"
	"github.com/wireloom/wireloom/http/proto"
	"github.com/wireloom/wireloom/internal/strutil"
)

// expectation is a bitset of Expect header tokens, since a client may legitimately
// combine more than one (e.g. "100-continue, 102-processing") in the same request.
type expectation uint8

const (
	expectNone          expectation = 0
	expect100Continue   expectation = 1 << 0
	expect102Processing expectation = 1 << 1
)

// ExchangeState is the set of decisions the connection engine makes once a request's
// headers are fully parsed: whether the connection may carry another exchange after
// this one, what (if anything) the client is waiting to hear before sending a body,
// and which protocol it wants to switch to, if any.
type ExchangeState struct {
	Persistent bool
	Expect     expectation
	// ExpectUnknown is set when the Expect header carried a token this engine doesn't
	// recognize, independent of any recognized tokens also present.
	ExpectUnknown bool
	Upgrade       proto.Protocol
}

// Decide computes the ExchangeState for req. allowPersistent folds together every
// reason a caller might refuse to keep the connection open beyond this exchange:
// config.HTTP.KeepAlive being off, or the connection's supervisor already draining
// for shutdown (ConnectionEngine passes cfg.HTTP.KeepAlive && !draining.Load()).
func Decide(allowPersistent bool, req *http.Request) ExchangeState {
	expect, unknown := parseExpect(req.Headers.Value("Expect"))
	state := ExchangeState{Expect: expect, ExpectUnknown: unknown}

	closeToken := hasToken(req.Connection, "close")

	switch req.Protocol {
	case proto.HTTP10:
		state.Persistent = allowPersistent && hasToken(req.Connection, "keep-alive") && !closeToken
	case proto.HTTP11:
		state.Persistent = allowPersistent && !closeToken
	default:
		state.Persistent = false
	}

	if req.Method == method.CONNECT {
		state.Persistent = allowPersistent
	}

	if req.Upgrade != proto.Unknown {
		state.Upgrade = req.Upgrade
	}

	return state
}

// parseExpect reads the Expect header as an independent set of tokens rather than a
// single choice: "100-continue" and "102-processing" may both be present at once, and
// both apply. unknown is set if any token isn't one of those two, regardless of
// whether the recognized ones were also present.
func parseExpect(value string) (flags expectation, unknown bool) {
	if len(value) == 0 {
		return expectNone, false
	}

	for _, tok := range strings.Split(value, ",") {
		switch strings.TrimSpace(tok) {
		case "100-continue":
			flags |= expect100Continue
		case "102-processing":
			flags |= expect102Processing
		default:
			unknown = true
		}
	}

	return flags, unknown
}

func hasToken(header, token string) bool {
	for _, tok := range strings.Split(header, ",") {
		if strutil.CmpFold(strings.TrimSpace(tok), token) {
			return true
		}
	}

	return false
}
