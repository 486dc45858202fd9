// Package collector drives the crash-log acquisition workflow against one
// MFD: push the diagnostic script, execute it, pull whatever it produced and
// tidy up the device afterwards.
package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/navtools/mfddiag/pkg/archive"
	"github.com/navtools/mfddiag/pkg/config"
	"github.com/navtools/mfddiag/pkg/interfaces"
	"github.com/navtools/mfddiag/pkg/log"
	"gopkg.in/yaml.v3"
)

const (
	// remoteCrashLogDir is where the diagnostic script drops its results.
	remoteCrashLogDir = "/mnt/tmp/crash_logs"

	// noCrashLogsLine is the exact ls error these devices emit when the
	// script found nothing. Detection is by string match because the probe
	// command reports through merged output, not its exit status.
	noCrashLogsLine = "ls: /mnt/tmp/crash_logs/: No such file or directory"

	// Settle delays between script transfer, execution and harvesting; the
	// device needs a moment to flush its dropbox.
	transferSettleDelay = 2 * time.Second
	executeSettleDelay  = 5 * time.Second
)

// Options configure a collection run.
type Options struct {
	// ScriptName is the diagnostic script file name, e.g. extract_crashes.sh.
	ScriptName string
	// ScriptPath is the local path of the script to push.
	ScriptPath string
	// LocalDir is the root directory pulled logs are stored under.
	LocalDir string
	// Compress packs the run directory into a tar.zst archive afterwards.
	Compress bool
}

// Result describes the outcome of one collection run.
type Result struct {
	Device      string
	RunID       string
	LogsFound   bool
	PulledFiles []string
	RunDir      string
	ArchivePath string
}

// Collector runs the workflow over an established remote session. It does
// not own the session; connecting and tearing down are the caller's job.
type Collector struct {
	session interfaces.SessionHandle
	device  *config.Device
	opts    Options

	// sleep is a seam so tests do not wait out the settle delays.
	sleep func(time.Duration)
}

// New validates the device and prepares the local log directory.
func New(session interfaces.SessionHandle, device *config.Device, opts Options) (*Collector, error) {
	if err := device.Validate(); err != nil {
		return nil, err
	}
	if opts.ScriptName == "" || opts.ScriptPath == "" {
		return nil, fmt.Errorf("no diagnostic script configured")
	}

	if err := os.MkdirAll(opts.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create crash log directory %s: %w", opts.LocalDir, err)
	}

	return &Collector{
		session: session,
		device:  device,
		opts:    opts,
		sleep:   time.Sleep,
	}, nil
}

// Collect runs the full workflow: transfer the script, execute it, harvest
// the produced logs, clean the device up and archive the run directory.
func (c *Collector) Collect() (*Result, error) {
	result := &Result{
		Device: c.device.Name,
		RunID:  shortRunID(),
	}

	if err := c.transferScript(); err != nil {
		return nil, err
	}
	if err := c.executeScript(); err != nil {
		return nil, err
	}

	logName, found, err := c.probeCrashLogs()
	if err != nil {
		return nil, err
	}
	if !found {
		log.Infof("No crashes detected for %s", c.device.Name)
		return result, nil
	}
	result.LogsFound = true

	if err := c.harvest(result, logName); err != nil {
		return nil, err
	}

	if err := c.cleanupRemote(); err != nil {
		// Logs are already local; a failed cleanup is not worth the run.
		log.Errorf("Failed to remove crash logs on %s: %v", c.device.Name, err)
	}

	if c.opts.Compress {
		archivePath, err := c.compressRun(result.RunDir)
		if err != nil {
			return nil, err
		}
		result.ArchivePath = archivePath
	}

	return result, nil
}

// transferScript pushes the diagnostic script to the model-specific
// directory on the device.
func (c *Collector) transferScript() error {
	remoteDir, err := config.RemoteScriptDir(c.device.Model)
	if err != nil {
		return err
	}

	log.Infof("Transferring %s to %s", c.opts.ScriptName, c.device.Name)
	if err := c.session.OpenTransferChannel(); err != nil {
		return fmt.Errorf("opening transfer channel to %s: %w", c.device.Name, err)
	}

	remotePath := remoteDir + "/" + c.opts.ScriptName
	if err := c.session.Push(c.opts.ScriptPath, remotePath); err != nil {
		return fmt.Errorf("pushing diagnostic script to %s: %w", c.device.Name, err)
	}

	c.sleep(transferSettleDelay)
	return nil
}

// executeScript marks the script executable and dispatches it. The script
// runs detached; its results are harvested after a settle delay.
func (c *Collector) executeScript() error {
	remoteDir, err := config.RemoteScriptDir(c.device.Model)
	if err != nil {
		return err
	}
	remotePath := remoteDir + "/" + c.opts.ScriptName

	log.Infof("Setting permissions for %s", remotePath)
	if _, err := c.session.RunCaptured("chmod +x " + remotePath); err != nil {
		return fmt.Errorf("setting script permissions on %s: %w", c.device.Name, err)
	}

	log.Infof("Executing %s on %s", remotePath, c.device.Name)
	if err := c.session.Run(remotePath); err != nil {
		return fmt.Errorf("executing diagnostic script on %s: %w", c.device.Name, err)
	}

	c.sleep(executeSettleDelay)
	return nil
}

// probeCrashLogs checks whether the script produced a crash log directory.
// It returns the name of the log bundle when one exists.
func (c *Collector) probeCrashLogs() (string, bool, error) {
	log.Infof("Checking for crash logs on %s", c.device.Name)

	lines, err := c.session.RunCaptured("ls " + remoteCrashLogDir + "/")
	if err != nil {
		return "", false, fmt.Errorf("probing crash logs on %s: %w", c.device.Name, err)
	}

	if lines[0] == noCrashLogsLine {
		return "", false, nil
	}
	return lines[0], true, nil
}

// harvest pulls every file of the crash log bundle into a fresh run
// directory and records the device metadata next to them.
func (c *Collector) harvest(result *Result, logName string) error {
	remoteLogDir := remoteCrashLogDir + "/" + logName
	log.Infof("Crash logs for %s located at %s", c.device.Name, remoteLogDir)

	files, err := c.session.RunCaptured("ls " + remoteLogDir)
	if err != nil {
		return fmt.Errorf("listing crash logs on %s: %w", c.device.Name, err)
	}

	runDir := filepath.Join(c.opts.LocalDir, c.device.DirName()+"_"+result.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}
	result.RunDir = runDir

	if err := c.writeDeviceInfo(runDir); err != nil {
		return err
	}

	progress := log.NewProgressBar(fmt.Sprintf("Pulling logs from %s", c.device.Name), len(files))
	for _, file := range files {
		remoteFile := remoteLogDir + "/" + file
		// Device log names carry timestamps with colons, which some local
		// filesystems reject.
		localFile := filepath.Join(runDir, strings.ReplaceAll(file, ":", "-"))

		if err := c.session.Pull(localFile, remoteFile); err != nil {
			return fmt.Errorf("pulling %s from %s: %w", remoteFile, c.device.Name, err)
		}
		result.PulledFiles = append(result.PulledFiles, localFile)
		progress.Increment()
	}
	progress.Complete()

	log.Infof("Pulled %d crash log files from %s", len(result.PulledFiles), c.device.Name)
	return nil
}

// cleanupRemote resets the device dropbox so the next run starts clean.
func (c *Collector) cleanupRemote() error {
	log.Infof("Removing crash logs on %s", c.device.Name)
	return c.session.Run("rm -rf " + remoteCrashLogDir)
}

// compressRun packs the run directory into a tar.zst archive alongside it.
func (c *Collector) compressRun(runDir string) (string, error) {
	compressor, err := archive.NewCompressor()
	if err != nil {
		return "", err
	}
	defer compressor.Close()

	archivePath := runDir + ".tar.zst"
	if err := compressor.CompressDirectory(runDir, archivePath); err != nil {
		return "", err
	}
	return archivePath, nil
}

// writeDeviceInfo saves the inventory metadata of the device next to the
// pulled logs.
func (c *Collector) writeDeviceInfo(runDir string) error {
	data, err := yaml.Marshal(c.device)
	if err != nil {
		return fmt.Errorf("failed to marshal device info: %w", err)
	}
	infoPath := filepath.Join(runDir, "device.yaml")
	if err := os.WriteFile(infoPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write device info %s: %w", infoPath, err)
	}
	return nil
}

// shortRunID returns a short unique id so repeated runs for the same device
// never collide on disk.
func shortRunID() string {
	return uuid.NewString()[:8]
}
