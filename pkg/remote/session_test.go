package remote

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionConnect(t *testing.T) {
	dialer := &fakeDialer{}
	s := NewSession("198.18.0.171", "root", "")
	s.transport.dial = dialer.dial

	require.NoError(t, s.Connect(false))
	assert.Equal(t, StatusConnected, s.Status())
	assert.Equal(t, "198.18.0.171", s.Host())
}

func TestDialPropagatesConnectFailure(t *testing.T) {
	s, err := Dial("10.255.255.1", "root", filepath.Join(t.TempDir(), "no-such-key"))
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Nil(t, s)
}

func TestSessionWorkflow(t *testing.T) {
	dialer := &fakeDialer{}
	s := NewSession("198.18.0.171", "root", "")
	s.transport.dial = dialer.dial

	require.NoError(t, s.Connect(false))
	require.NoError(t, s.OpenTransferChannel())
	assert.Equal(t, StatusConnected, s.ChannelStatus())

	conn := dialer.conns[0]

	// Stage the diagnostic script on the device.
	script := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, s.Push(script, "/data/raymarine/script.sh"))

	// Mark it executable; the canned session output is non-empty.
	lines, err := s.RunCaptured("chmod +x /data/raymarine/script.sh")
	require.NoError(t, err)
	assert.NotEmpty(t, lines)

	// Retrieve a produced log file.
	conn.transfer.files["/mnt/tmp/crash_logs/log.txt"] = []byte("crash data")
	local := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, s.Pull(local, "/mnt/tmp/crash_logs/log.txt"))

	require.NoError(t, s.DisconnectAll())
	assert.Equal(t, StatusDisconnected, s.Status())
	assert.Equal(t, StatusDisconnected, s.ChannelStatus())
	assert.True(t, conn.closed)
	assert.True(t, conn.transfer.closed)

	// Tearing down an already torn-down session is a no-op.
	require.NoError(t, s.DisconnectAll())
}

func TestDisconnectInvalidatesOpenChannel(t *testing.T) {
	dialer := &fakeDialer{}
	s := NewSession("198.18.0.171", "root", "")
	s.transport.dial = dialer.dial

	require.NoError(t, s.Connect(false))
	require.NoError(t, s.OpenTransferChannel())

	require.NoError(t, s.Disconnect())
	assert.Equal(t, StatusDisconnected, s.Status())
	// The channel dies with the transport; its handle is dropped without a
	// close of its own.
	assert.Equal(t, StatusDisconnected, s.ChannelStatus())
	require.ErrorIs(t, s.Push("./x", "/x"), ErrConnection)
}

func TestDisconnectAllClosesChannelCloseFailure(t *testing.T) {
	conn := &fakeConn{}
	tr := connectedTransport(conn)
	s := &Session{transport: tr, exec: &Exec{transport: tr}, channel: &Channel{transport: tr}}
	require.NoError(t, s.OpenTransferChannel())
	conn.transfer.closeErr = os.ErrClosed

	err := s.DisconnectAll()
	require.ErrorIs(t, err, ErrSession)
	// The transport stays up; teardown stops at the failing component.
	assert.Equal(t, StatusConnected, s.Status())
}
