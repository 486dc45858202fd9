package remote

import (
	"errors"
	"io"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// transportConn is the live authenticated connection to a host. The
// interfaces here wrap *ssh.Client, *ssh.Session and *sftp.Client so the
// session logic can be exercised against fakes.
type transportConn interface {
	// CommandSession opens a fresh channel for one command invocation.
	CommandSession() (commandSession, error)
	// TransferClient derives the file-copy channel from the transport.
	TransferClient() (transferClient, error)
	Close() error
}

// commandSession is a single remote command invocation.
type commandSession interface {
	// CombinedOutput runs the command with the remote error stream merged
	// into the output stream, blocks until the output is drained, and
	// returns the remote exit status. A status of -1 means the remote
	// closed the stream without reporting one.
	CombinedOutput(command string) ([]byte, int, error)
	// Start dispatches the command without waiting for it.
	Start(command string) error
	Wait() error
	Close() error
}

// transferClient is the file-copy channel derived from a transport.
type transferClient interface {
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	Close() error
}

// dialFunc establishes a transport connection. Tests substitute this to
// avoid the network.
type dialFunc func(addr string, cfg *ssh.ClientConfig) (transportConn, error)

func dialSSH(addr string, cfg *ssh.ClientConfig) (transportConn, error) {
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, err
	}
	return &sshConn{client: client}, nil
}

// sshConn adapts *ssh.Client to transportConn.
type sshConn struct {
	client *ssh.Client
}

func (c *sshConn) CommandSession() (commandSession, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &sshSession{sess: sess}, nil
}

func (c *sshConn) TransferClient() (transferClient, error) {
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, err
	}
	return &sftpTransfer{client: client}, nil
}

func (c *sshConn) Close() error {
	return c.client.Close()
}

// sshSession adapts *ssh.Session to commandSession, folding the exit-status
// errors of x/crypto/ssh into a plain integer.
type sshSession struct {
	sess *ssh.Session
}

func (s *sshSession) CombinedOutput(command string) ([]byte, int, error) {
	out, err := s.sess.CombinedOutput(command)
	if err == nil {
		return out, 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitStatus(), nil
	}
	var missingErr *ssh.ExitMissingError
	if errors.As(err, &missingErr) {
		return out, -1, nil
	}
	return out, -1, err
}

func (s *sshSession) Start(command string) error {
	return s.sess.Start(command)
}

func (s *sshSession) Wait() error {
	return s.sess.Wait()
}

func (s *sshSession) Close() error {
	return s.sess.Close()
}

// sftpTransfer adapts *sftp.Client to transferClient.
type sftpTransfer struct {
	client *sftp.Client
}

func (t *sftpTransfer) Open(path string) (io.ReadCloser, error) {
	f, err := t.client.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (t *sftpTransfer) Create(path string) (io.WriteCloser, error) {
	f, err := t.client.Create(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (t *sftpTransfer) Close() error {
	return t.client.Close()
}
