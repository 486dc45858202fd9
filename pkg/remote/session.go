// Package remote implements the session layer for talking to embedded
// marine-navigation devices over SSH: an authenticated transport with
// bounded connect retry, a command execution sub-session and an SFTP
// transfer channel, composed into a single per-host facade.
//
// A Session is synchronous and not safe for concurrent use; operate on N
// hosts with N independent Sessions.
package remote

import (
	"fmt"

	"github.com/navtools/mfddiag/pkg/log"
)

// Session is the per-host facade composing the transport session, command
// execution and file transfer. The transport is owned exclusively by its
// Session; the sub-sessions hold non-owning references to it.
type Session struct {
	transport *Transport
	exec      *Exec
	channel   *Channel
}

// NewSession returns a disconnected facade for host. keyPath may be empty
// for devices that authenticate by identity alone.
func NewSession(host, user, keyPath string) *Session {
	t := NewTransport(host, user, keyPath)
	return &Session{
		transport: t,
		exec:      &Exec{transport: t},
		channel:   &Channel{transport: t},
	}
}

// Dial constructs the facade and immediately establishes the transport
// session, propagating any connect error.
func Dial(host, user, keyPath string) (*Session, error) {
	s := NewSession(host, user, keyPath)
	if err := s.Connect(false); err != nil {
		return nil, err
	}
	return s, nil
}

// Host returns the target host address.
func (s *Session) Host() string {
	return s.transport.Host
}

// Status returns the transport session status.
func (s *Session) Status() Status {
	return s.transport.Status()
}

// ChannelStatus returns the transfer channel status.
func (s *Session) ChannelStatus() Status {
	return s.channel.Status()
}

// Connect establishes (or with forceReconnect, re-establishes) the
// transport session.
func (s *Session) Connect(forceReconnect bool) error {
	return s.transport.Connect(forceReconnect)
}

// Disconnect closes the transport session. An open transfer channel dies
// with the transport, so its handle is dropped as well.
func (s *Session) Disconnect() error {
	err := s.transport.Disconnect()
	if s.channel.status == StatusConnected {
		s.channel.client = nil
		s.channel.status = StatusDisconnected
	}
	return err
}

// OpenTransferChannel opens the file-transfer channel over the established
// transport.
func (s *Session) OpenTransferChannel() error {
	return s.channel.Open()
}

// CloseTransferChannel closes the file-transfer channel.
func (s *Session) CloseTransferChannel() error {
	return s.channel.Close()
}

// Run dispatches a command without capturing output.
func (s *Session) Run(command string) error {
	return s.exec.Run(command)
}

// RunCaptured executes a command and returns its output lines.
func (s *Session) RunCaptured(command string) ([]string, error) {
	return s.exec.RunCaptured(command)
}

// RunCapturedWithStatus executes a command and returns its output lines and
// remote exit status.
func (s *Session) RunCapturedWithStatus(command string) ([]string, int, error) {
	return s.exec.RunCapturedWithStatus(command)
}

// Push copies a local file to the remote host over the transfer channel.
func (s *Session) Push(localPath, remotePath string) error {
	return s.channel.Push(localPath, remotePath)
}

// Pull copies a remote file to the local filesystem over the transfer
// channel.
func (s *Session) Pull(localPath, remotePath string) error {
	return s.channel.Pull(localPath, remotePath)
}

// DisconnectAll tears the session down in dependency order: the transfer
// channel first, then the transport. Components already closed are skipped,
// so repeated calls are not an error. A component failure is wrapped in
// ErrSession.
func (s *Session) DisconnectAll() error {
	if s.channel.status == StatusConnected {
		if err := s.channel.Close(); err != nil {
			return fmt.Errorf("%w: %v", ErrSession, err)
		}
	}
	if s.transport.status == StatusConnected {
		if err := s.transport.Disconnect(); err != nil {
			return fmt.Errorf("%w: %v", ErrSession, err)
		}
	}
	log.Infof("Disconnected all sessions for %s (transport: %s, channel: %s)",
		s.transport.Host, s.transport.status, s.channel.status)
	return nil
}
