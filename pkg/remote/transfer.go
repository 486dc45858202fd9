package remote

import (
	"fmt"
	"io"
	"os"

	"github.com/navtools/mfddiag/pkg/log"
)

// Channel is the file-copy channel layered on an established transport
// session. It has its own open/close cycle: closing the transport implicitly
// invalidates an open channel, but opening one requires a connected
// transport.
type Channel struct {
	transport *Transport

	status Status
	client transferClient
}

// Status returns the current channel status.
func (c *Channel) Status() Status {
	return c.status
}

// Open derives the transfer channel from the live transport handle.
func (c *Channel) Open() error {
	log.Info("Attempting to establish the transfer channel")

	if c.transport.status != StatusConnected {
		c.status = StatusFailed
		return fmt.Errorf("%w: no session available for the transfer channel", ErrConnection)
	}

	client, err := c.transport.conn.TransferClient()
	if err != nil {
		c.status = StatusFailed
		return fmt.Errorf("%w: opening transfer channel: %v", ErrConnection, err)
	}

	c.client = client
	c.status = StatusConnected
	log.Info("Transfer channel established")
	return nil
}

// Close shuts the transfer channel down and releases its handle.
func (c *Channel) Close() error {
	log.Info("Attempting to close the transfer channel")

	if c.status != StatusConnected {
		return fmt.Errorf("%w: no transfer channel to close", ErrConnection)
	}

	err := c.client.Close()
	c.client = nil
	c.status = StatusDisconnected
	if err != nil {
		return fmt.Errorf("%w: closing transfer channel: %v", ErrConnection, err)
	}
	log.Info("Transfer channel closed")
	return nil
}

// Push copies a local file to the remote host. Completion implies a full
// byte transfer; any interruption surfaces as a TransferError.
func (c *Channel) Push(localPath, remotePath string) error {
	log.Infof("Pushing %s to %s", localPath, remotePath)

	if c.status != StatusConnected {
		return fmt.Errorf("%w: there is no established transfer connection", ErrConnection)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return c.transferErr("push", localPath, remotePath, err, true)
	}
	defer src.Close()

	dst, err := c.client.Create(remotePath)
	if err != nil {
		return c.transferErr("push", localPath, remotePath, err, false)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return c.transferErr("push", localPath, remotePath, err, false)
	}
	if err := dst.Close(); err != nil {
		return c.transferErr("push", localPath, remotePath, err, false)
	}

	log.Infof("Successfully pushed %s to %s", localPath, remotePath)
	return nil
}

// Pull copies a remote file to the local filesystem.
func (c *Channel) Pull(localPath, remotePath string) error {
	log.Infof("Pulling %s to %s", remotePath, localPath)

	if c.status != StatusConnected {
		return fmt.Errorf("%w: there is no established transfer connection", ErrConnection)
	}

	src, err := c.client.Open(remotePath)
	if err != nil {
		return c.transferErr("pull", localPath, remotePath, err, false)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return c.transferErr("pull", localPath, remotePath, err, true)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(localPath)
		return c.transferErr("pull", localPath, remotePath, err, false)
	}
	if err := dst.Close(); err != nil {
		return c.transferErr("pull", localPath, remotePath, err, true)
	}

	log.Infof("Successfully pulled %s to %s", remotePath, localPath)
	return nil
}

func (c *Channel) transferErr(op, localPath, remotePath string, err error, local bool) error {
	terr := &TransferError{
		Op:     op,
		Cause:  classifyTransfer(err, local),
		Local:  localPath,
		Remote: remotePath,
		Err:    err,
	}
	log.Errorf("%v", terr)
	return terr
}
