package remote

import (
	"bytes"
	"io"
	"os"
	"sync"
	"syscall"

	"golang.org/x/crypto/ssh"
)

// fakeSession scripts a single command invocation.
type fakeSession struct {
	out  []byte
	exit int
	err  error

	combinedCmd string
	startedCmd  string
	waited      bool
	closed      bool

	mu sync.Mutex
}

func (s *fakeSession) CombinedOutput(command string) ([]byte, int, error) {
	s.combinedCmd = command
	return s.out, s.exit, s.err
}

func (s *fakeSession) Start(command string) error {
	s.startedCmd = command
	return s.err
}

func (s *fakeSession) Wait() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waited = true
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeTransfer is an in-memory remote filesystem.
type fakeTransfer struct {
	files map[string][]byte

	openErr   error
	createErr error
	closeErr  error
	closed    bool
}

func newFakeTransfer() *fakeTransfer {
	return &fakeTransfer{files: make(map[string][]byte)}
}

func (t *fakeTransfer) Open(path string) (io.ReadCloser, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}
	data, ok := t.files[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: syscall.ENOENT}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (t *fakeTransfer) Create(path string) (io.WriteCloser, error) {
	if t.createErr != nil {
		return nil, t.createErr
	}
	return &fakeRemoteFile{transfer: t, path: path}, nil
}

func (t *fakeTransfer) Close() error {
	t.closed = true
	return t.closeErr
}

type fakeRemoteFile struct {
	transfer *fakeTransfer
	path     string
	buf      bytes.Buffer
}

func (f *fakeRemoteFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *fakeRemoteFile) Close() error {
	f.transfer.files[f.path] = f.buf.Bytes()
	return nil
}

// fakeConn hands out fake sessions and the fake transfer client.
type fakeConn struct {
	sessions    []*fakeSession
	sessionErr  error
	nextSession *fakeSession

	transfer    *fakeTransfer
	transferErr error

	closeErr error
	closed   bool
}

func (c *fakeConn) CommandSession() (commandSession, error) {
	if c.sessionErr != nil {
		return nil, c.sessionErr
	}
	sess := c.nextSession
	if sess == nil {
		sess = &fakeSession{out: []byte("ok\n")}
	}
	c.sessions = append(c.sessions, sess)
	return sess, nil
}

func (c *fakeConn) TransferClient() (transferClient, error) {
	if c.transferErr != nil {
		return nil, c.transferErr
	}
	if c.transfer == nil {
		c.transfer = newFakeTransfer()
	}
	return c.transfer, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return c.closeErr
}

// fakeDialer scripts the outcome of successive dial attempts. Each call
// consumes one scripted error; nil yields a fresh fakeConn.
type fakeDialer struct {
	errs  []error
	calls int
	cfgs  []*ssh.ClientConfig
	conns []*fakeConn
}

func (d *fakeDialer) dial(addr string, cfg *ssh.ClientConfig) (transportConn, error) {
	idx := d.calls
	d.calls++
	d.cfgs = append(d.cfgs, cfg)
	if idx < len(d.errs) && d.errs[idx] != nil {
		return nil, d.errs[idx]
	}
	conn := &fakeConn{}
	d.conns = append(d.conns, conn)
	return conn, nil
}

// connectedTransport returns a transport wired to a fake connection.
func connectedTransport(conn *fakeConn) *Transport {
	t := NewTransport("198.18.0.171", "root", "")
	t.status = StatusConnected
	t.conn = conn
	return t
}
