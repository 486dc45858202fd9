package interfaces

// SessionHandle composes everything the diagnostic workflow needs from an
// established remote session.
type SessionHandle interface {
	CommandRunner
	FileTransfer

	// DisconnectAll tears down the transfer channel and the transport.
	DisconnectAll() error
}

// CommandRunner defines the interface for executing remote commands
type CommandRunner interface {
	// Dispatch a command without capturing output
	Run(command string) error

	// Execute a command and capture its output lines
	RunCaptured(command string) ([]string, error)

	// Execute a command and capture its output lines and exit status
	RunCapturedWithStatus(command string) ([]string, int, error)
}

// FileTransfer defines the interface for moving files over an established
// session
type FileTransfer interface {
	// Open and close the transfer channel
	OpenTransferChannel() error
	CloseTransferChannel() error

	// Push a file (local to remote)
	Push(localPath, remotePath string) error

	// Pull a file (remote to local)
	Pull(localPath, remotePath string) error
}
