package remote

import (
	"fmt"
	"strings"

	"github.com/navtools/mfddiag/pkg/log"
)

// Exec runs shell commands over an established transport session. Every
// method requires the owning transport to be connected and fails fast with
// ErrExecute otherwise, without touching the network.
type Exec struct {
	transport *Transport
}

// Run dispatches the command and returns without waiting for or capturing
// output. The remote exit status is not observed in this mode, so a failing
// command is not an error.
func (e *Exec) Run(command string) error {
	if e.transport.status != StatusConnected {
		return fmt.Errorf("%w: no session available", ErrExecute)
	}

	log.Debugf("Executing command: %s", command)
	sess, err := e.transport.conn.CommandSession()
	if err != nil {
		return fmt.Errorf("%w: opening command session: %v", ErrExecute, err)
	}
	if err := sess.Start(command); err != nil {
		sess.Close()
		return fmt.Errorf("%w: starting %q: %v", ErrExecute, command, err)
	}

	// Reap the session in the background so an early channel close does not
	// kill long-running commands such as a reboot.
	go func() {
		_ = sess.Wait()
		_ = sess.Close()
	}()

	log.Debugf("Executed command without reading output: %s", command)
	return nil
}

// RunCaptured executes the command with the remote error stream merged into
// the output stream, blocks until the output is drained, and returns the
// terminator-stripped lines. Commands on this device class always emit at
// least a status line, so zero output lines is an execution anomaly.
func (e *Exec) RunCaptured(command string) ([]string, error) {
	lines, _, err := e.captured(command)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// RunCapturedWithStatus is RunCaptured plus the remote exit status,
// retrieved only after the output stream is exhausted. A command that
// reports no exit status is an error; note that a literal status of 0 fails
// the same check (see the package tests pinning this behavior).
func (e *Exec) RunCapturedWithStatus(command string) ([]string, int, error) {
	lines, exitStatus, err := e.captured(command)
	if err != nil {
		return nil, 0, err
	}
	if exitStatus <= 0 {
		return nil, 0, fmt.Errorf("%w: command %q did not return an exit status", ErrExecute, command)
	}
	return lines, exitStatus, nil
}

func (e *Exec) captured(command string) ([]string, int, error) {
	if e.transport.status != StatusConnected {
		return nil, 0, fmt.Errorf("%w: no session available", ErrExecute)
	}

	log.Debugf("Executing command and reading output: %s", command)
	sess, err := e.transport.conn.CommandSession()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: opening command session: %v", ErrExecute, err)
	}
	defer sess.Close()

	out, exitStatus, err := sess.CombinedOutput(command)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: running %q: %v", ErrExecute, command, err)
	}

	lines := splitLines(out)
	if len(lines) == 0 {
		return nil, 0, fmt.Errorf("%w: command %q did not return any output", ErrExecute, command)
	}
	log.Debugf("Output of %q: %v", command, lines)
	return lines, exitStatus, nil
}

// splitLines splits captured output into lines with the terminators
// stripped. Interior empty lines are kept, a trailing one is not.
func splitLines(out []byte) []string {
	trimmed := strings.TrimRight(string(out), "\r\n")
	if trimmed == "" {
		return nil
	}
	lines := strings.Split(trimmed, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}
