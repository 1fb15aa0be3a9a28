package arquery

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mranv/agentARChecker/internal/services"
)

const (
	// StatusOK is the status token of a successful daemon reply.
	StatusOK = "ok"
	// StatusErr is the status token of a daemon-side failure.
	StatusErr = "err"

	unreachableMarker = "Cannot send request"
)

// Response is a decoded daemon reply.
type Response struct {
	Status string `json:"status"`
	Body   string `json:"body"`
}

// AgentUnreachable reports whether the daemon answered that it could not
// forward the request to the agent.
func (r Response) AgentUnreachable() bool {
	return r.Status == StatusErr && strings.Contains(r.Body, unreachableMarker)
}

// ParseResponse decodes payload as UTF-8 and splits it at the first
// whitespace character. The body is empty when there is no whitespace.
func ParseResponse(payload []byte) (Response, error) {
	if !utf8.Valid(payload) {
		return Response{}, services.Wrap(services.KindDecode, "decode response",
			fmt.Errorf("payload of %d bytes is not valid UTF-8", len(payload)))
	}
	text := string(payload)
	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return Response{Status: text}, nil
	}
	_, size := utf8.DecodeRuneInString(text[idx:])
	return Response{Status: text[:idx], Body: text[idx+size:]}, nil
}
