package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/pkg/sftp"
)

// Error kinds surfaced by this package. Callers branch with errors.Is, never
// on message text.
var (
	// ErrAlreadyConnected is returned when Connect is called on a live
	// session without forceReconnect.
	ErrAlreadyConnected = errors.New("connection already established")
	// ErrAuthenticationFailed is terminal: the remote rejected the
	// credential and retrying cannot change the outcome.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNetwork is raised after retry exhaustion when the last failure was
	// socket level (host or network unreachable).
	ErrNetwork = errors.New("network error")
	// ErrConnection covers transport protocol failures, close failures and
	// operations attempted on an unopened transfer channel.
	ErrConnection = errors.New("connection error")
	// ErrUnknown is raised after retry exhaustion when the last failure fits
	// no other class.
	ErrUnknown = errors.New("unknown connection error")
	// ErrExecute covers command execution on a missing session and anomalous
	// empty or statusless results.
	ErrExecute = errors.New("command execution failed")
	// ErrSession wraps component failures during DisconnectAll.
	ErrSession = errors.New("session teardown failed")
)

// TransferCause discriminates the underlying failure of a push or pull for
// diagnostics only; control flow branches on the TransferError kind.
type TransferCause int

const (
	CauseUnexpected TransferCause = iota
	CauseLocalNotFound
	CausePermissionDenied
	CauseTimeout
	CauseOSError
	CauseRemotePathInvalid
	CauseTransportFailure
)

func (c TransferCause) String() string {
	switch c {
	case CauseLocalNotFound:
		return "local file not found"
	case CausePermissionDenied:
		return "permission denied"
	case CauseTimeout:
		return "operation timed out"
	case CauseOSError:
		return "os error"
	case CauseRemotePathInvalid:
		return "remote path invalid"
	case CauseTransportFailure:
		return "transport failure"
	default:
		return "unexpected error"
	}
}

// TransferError is the umbrella kind for every push/pull fault.
type TransferError struct {
	Op     string // "push" or "pull"
	Cause  TransferCause
	Local  string
	Remote string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s failed (%s): local %q remote %q: %v",
		e.Op, e.Cause, e.Local, e.Remote, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// AsTransferError unwraps err into a *TransferError if one is present.
func AsTransferError(err error) (*TransferError, bool) {
	var terr *TransferError
	if errors.As(err, &terr) {
		return terr, true
	}
	return nil, false
}

// failureClass drives the connect retry loop: terminal failures abort
// immediately, everything else is retried until the attempt budget runs out.
type failureClass int

const (
	classTerminal failureClass = iota
	classNetwork
	classProtocol
	classUnknown
)

// isAuthFailure reports whether a dial error is an authentication rejection.
// x/crypto/ssh surfaces these as plain errors, but the message is stable.
func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}

// classifyConnectFailure maps a dial error to its retry class.
func classifyConnectFailure(err error) failureClass {
	if errors.Is(err, ErrAuthenticationFailed) || isAuthFailure(err) {
		return classTerminal
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return classNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return classNetwork
	}
	if strings.Contains(err.Error(), "ssh:") {
		return classProtocol
	}
	return classUnknown
}

// classifyTransfer maps an underlying copy failure to a TransferError cause.
// local reports whether the failing side was the local filesystem; a missing
// file means something different on each side of the copy.
func classifyTransfer(err error, local bool) TransferCause {
	switch {
	case errors.Is(err, os.ErrNotExist):
		if local {
			return CauseLocalNotFound
		}
		return CauseRemotePathInvalid
	case errors.Is(err, os.ErrPermission):
		return CausePermissionDenied
	case errors.Is(err, os.ErrDeadlineExceeded) || os.IsTimeout(err):
		return CauseTimeout
	case errors.Is(err, sftp.ErrSSHFxConnectionLost) || errors.Is(err, sftp.ErrSSHFxNoConnection):
		return CauseTransportFailure
	}
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		return CauseRemotePathInvalid
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return CauseOSError
	}
	return CauseUnexpected
}
