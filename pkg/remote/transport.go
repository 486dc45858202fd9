package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/navtools/mfddiag/pkg/log"
	"golang.org/x/crypto/ssh"
)

const (
	defaultPort = "22"
	dialTimeout = 15 * time.Second

	// maxConnectAttempts bounds the connect retry loop.
	maxConnectAttempts = 2
)

// retryDelay paces reconnection attempts. A variable so tests can shorten it.
var retryDelay = 1 * time.Second

// Transport owns the authenticated connection to a single remote host. It is
// created disconnected; Connect moves it to StatusConnected, an exhausted
// retry budget moves it to StatusFailed. The handle is non-nil exactly when
// the status is StatusConnected.
type Transport struct {
	Host    string
	Port    string
	User    string
	KeyPath string // empty means attempt a keyless handshake

	status Status
	conn   transportConn
	dial   dialFunc
}

// NewTransport returns a disconnected transport for host. keyPath may be
// empty for devices that authenticate by identity alone.
func NewTransport(host, user, keyPath string) *Transport {
	return &Transport{
		Host:    host,
		Port:    defaultPort,
		User:    user,
		KeyPath: keyPath,
		status:  StatusDisconnected,
		dial:    dialSSH,
	}
}

// Status returns the current connection status.
func (t *Transport) Status() Status {
	return t.status
}

// Connect authenticates to the remote host, retrying retryable failures up
// to the attempt budget. An authentication rejection aborts immediately with
// ErrAuthenticationFailed. A live session is never silently replaced: pass
// forceReconnect to discard it.
func (t *Transport) Connect(forceReconnect bool) error {
	log.Infof("Attempting to establish an SSH connection to %s", t.Host)

	if t.status == StatusConnected {
		if !forceReconnect {
			return fmt.Errorf("%w: session to %s is live", ErrAlreadyConnected, t.Host)
		}
		// Discard the live session before dialing anew; the handle must never
		// outlive the Connected status.
		if err := t.conn.Close(); err != nil {
			log.Errorf("Closing previous session to %s failed: %v", t.Host, err)
		}
		t.conn = nil
		t.status = StatusDisconnected
	}

	addr := net.JoinHostPort(t.Host, t.Port)

	var lastErr error
	lastClass := classUnknown
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		conn, err := t.dialOnce(addr)
		if err == nil {
			t.conn = conn
			t.status = StatusConnected
			log.Infof("SSH connection to %s established", t.Host)
			return nil
		}

		class := classifyConnectFailure(err)
		if class == classTerminal {
			log.Errorf("Authentication to %s rejected, verify key and credentials", t.Host)
			if errors.Is(err, ErrAuthenticationFailed) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}

		lastErr, lastClass = err, class
		log.Errorf("Connection attempt %d of %d to %s failed: %v", attempt, maxConnectAttempts, t.Host, err)
		if attempt < maxConnectAttempts {
			log.Infof("Retrying in %s", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	t.status = StatusFailed
	switch lastClass {
	case classNetwork:
		return fmt.Errorf("%w: connecting to %s: %v", ErrNetwork, t.Host, lastErr)
	case classProtocol:
		return fmt.Errorf("%w: connecting to %s: %v", ErrConnection, t.Host, lastErr)
	default:
		return fmt.Errorf("%w: connecting to %s after %d attempts: %v",
			ErrUnknown, t.Host, maxConnectAttempts, lastErr)
	}
}

// dialOnce performs a single authentication handshake. With a key the dial
// is direct. Without one, an empty-password attempt is made first and its
// rejection tolerated, then a none-auth handshake, which is how these
// devices accept identity-only logins.
func (t *Transport) dialOnce(addr string) (transportConn, error) {
	if t.KeyPath != "" {
		key, err := os.ReadFile(t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading SSH key %s: %v", ErrAuthenticationFailed, t.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing SSH key %s: %v", ErrAuthenticationFailed, t.KeyPath, err)
		}
		return t.dial(addr, t.clientConfig(ssh.PublicKeys(signer)))
	}

	conn, err := t.dial(addr, t.clientConfig(ssh.Password("")))
	if err == nil || !isAuthFailure(err) {
		return conn, err
	}
	log.Info("Attempting SSH connection without an SSH key")
	return t.dial(addr, t.clientConfig())
}

func (t *Transport) clientConfig(auth ...ssh.AuthMethod) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            t.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}
}

// Disconnect closes the transport session and releases the handle.
func (t *Transport) Disconnect() error {
	log.Infof("Attempting to close the SSH connection to %s", t.Host)

	if t.status != StatusConnected {
		return fmt.Errorf("%w: no session to close", ErrConnection)
	}

	err := t.conn.Close()
	t.conn = nil
	t.status = StatusDisconnected
	if err != nil {
		return fmt.Errorf("%w: closing session to %s: %v", ErrConnection, t.Host, err)
	}
	log.Infof("SSH connection to %s closed", t.Host)
	return nil
}
