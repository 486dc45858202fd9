package remote

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openedChannel(t *testing.T) (*Channel, *fakeTransfer) {
	t.Helper()
	conn := &fakeConn{}
	ch := &Channel{transport: connectedTransport(conn)}
	require.NoError(t, ch.Open())
	return ch, conn.transfer
}

func TestOpenChannelRequiresConnectedTransport(t *testing.T) {
	tr := NewTransport("198.18.0.171", "root", "")
	ch := &Channel{transport: tr}

	err := ch.Open()
	require.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, StatusFailed, ch.Status())
}

func TestOpenChannel(t *testing.T) {
	ch, _ := openedChannel(t)
	assert.Equal(t, StatusConnected, ch.Status())
	assert.NotNil(t, ch.client)
}

func TestOpenChannelDerivationFailure(t *testing.T) {
	conn := &fakeConn{transferErr: errors.New("ssh: rejected: administratively prohibited")}
	ch := &Channel{transport: connectedTransport(conn)}

	err := ch.Open()
	require.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, StatusFailed, ch.Status())
}

func TestCloseChannel(t *testing.T) {
	ch, transfer := openedChannel(t)

	require.NoError(t, ch.Close())
	assert.Equal(t, StatusDisconnected, ch.Status())
	assert.Nil(t, ch.client)
	assert.True(t, transfer.closed)

	// A second close has nothing to act on.
	require.ErrorIs(t, ch.Close(), ErrConnection)
}

func TestPushPullRequireOpenChannel(t *testing.T) {
	conn := &fakeConn{}
	ch := &Channel{transport: connectedTransport(conn)}

	require.ErrorIs(t, ch.Push("./script.sh", "/data/script.sh"), ErrConnection)
	require.ErrorIs(t, ch.Pull("./out.txt", "/data/out.txt"), ErrConnection)
	// The precondition failure is not a TransferError.
	_, ok := AsTransferError(ch.Push("./script.sh", "/data/script.sh"))
	assert.False(t, ok)
}

func TestPush(t *testing.T) {
	ch, transfer := openedChannel(t)

	local := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(local, []byte("#!/bin/sh\necho ok\n"), 0755))

	require.NoError(t, ch.Push(local, "/data/raymarine/script.sh"))
	assert.Equal(t, []byte("#!/bin/sh\necho ok\n"), transfer.files["/data/raymarine/script.sh"])
}

func TestPushLocalNotFound(t *testing.T) {
	ch, _ := openedChannel(t)

	err := ch.Push(filepath.Join(t.TempDir(), "missing.sh"), "/data/script.sh")
	terr, ok := AsTransferError(err)
	require.True(t, ok)
	assert.Equal(t, CauseLocalNotFound, terr.Cause)
	assert.Equal(t, "push", terr.Op)
}

func TestPushRemotePathInvalid(t *testing.T) {
	ch, transfer := openedChannel(t)
	transfer.createErr = &os.PathError{Op: "create", Path: "/nope/script.sh", Err: syscall.ENOENT}

	local := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))

	err := ch.Push(local, "/nope/script.sh")
	terr, ok := AsTransferError(err)
	require.True(t, ok)
	assert.Equal(t, CauseRemotePathInvalid, terr.Cause)
}

func TestPull(t *testing.T) {
	ch, transfer := openedChannel(t)
	transfer.files["/mnt/tmp/crash_logs/out.txt"] = []byte("crash data")

	local := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, ch.Pull(local, "/mnt/tmp/crash_logs/out.txt"))

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "crash data", string(data))
}

func TestPullRemoteMissing(t *testing.T) {
	ch, _ := openedChannel(t)

	err := ch.Pull(filepath.Join(t.TempDir(), "out.txt"), "/mnt/tmp/crash_logs/nope.txt")
	terr, ok := AsTransferError(err)
	require.True(t, ok)
	assert.Equal(t, CauseRemotePathInvalid, terr.Cause)
	assert.Equal(t, "pull", terr.Op)
}

func TestPullLocalDirMissing(t *testing.T) {
	ch, transfer := openedChannel(t)
	transfer.files["/mnt/tmp/crash_logs/out.txt"] = []byte("crash data")

	err := ch.Pull(filepath.Join(t.TempDir(), "no", "such", "dir", "out.txt"), "/mnt/tmp/crash_logs/out.txt")
	terr, ok := AsTransferError(err)
	require.True(t, ok)
	assert.Equal(t, CauseLocalNotFound, terr.Cause)
}

func TestClassifyTransfer(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		local bool
		want  TransferCause
	}{
		{"local missing", &os.PathError{Op: "open", Path: "x", Err: syscall.ENOENT}, true, CauseLocalNotFound},
		{"remote missing", os.ErrNotExist, false, CauseRemotePathInvalid},
		{"local permission", &os.PathError{Op: "open", Path: "x", Err: syscall.EACCES}, true, CausePermissionDenied},
		{"remote permission", os.ErrPermission, false, CausePermissionDenied},
		{"deadline", os.ErrDeadlineExceeded, false, CauseTimeout},
		{"connection lost", sftp.ErrSSHFxConnectionLost, false, CauseTransportFailure},
		{"no connection", sftp.ErrSSHFxNoConnection, false, CauseTransportFailure},
		{"sftp status", &sftp.StatusError{Code: 4}, false, CauseRemotePathInvalid},
		{"plain os error", &os.PathError{Op: "read", Path: "x", Err: syscall.EIO}, true, CauseOSError},
		{"anything else", errors.New("boom"), false, CauseUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTransfer(tt.err, tt.local))
		})
	}
}
