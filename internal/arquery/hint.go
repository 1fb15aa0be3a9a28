package arquery

import (
	"errors"
	"syscall"

	"github.com/mranv/agentARChecker/internal/services"
)

// Hint suggests a next step for the operator based on the failure kind.
func Hint(err error) string {
	switch services.KindOf(err) {
	case services.KindConnection:
		switch {
		case errors.Is(err, syscall.ENOENT):
			return "socket not found; is the manager's remote daemon running?"
		case errors.Is(err, syscall.ECONNREFUSED):
			return "connection refused; restart the remote daemon"
		case errors.Is(err, syscall.EACCES):
			return "permission denied; run as a user in the socket's group"
		default:
			return "check the remote daemon and remote.socket_path"
		}
	case services.KindIO:
		return "the daemon dropped the exchange; check the manager logs"
	case services.KindAgentUnreachable:
		return "the agent is not connected to the manager"
	case services.KindDecode:
		return "the daemon returned a malformed response"
	case services.KindNotConnected:
		return "channel used after close"
	default:
		return "check logs for details"
	}
}
