package app

import (
	"path/filepath"

	"github.com/navtools/mfddiag/pkg/envar"
	"github.com/navtools/mfddiag/pkg/log"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "mfddiag",
	Short: "mfddiag - Crash log retrieval for marine MFDs",
	Long: `mfddiag connects to marine multi-function displays over SSH, runs the
diagnostic script on each device and pulls the produced crash logs back to
the local machine.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set log modes based on flags
		if verbose {
			log.SetVerbose(true)
		}
		if quiet {
			log.SetQuiet(true)
		}
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Enable quiet mode (minimal output)")
}

// Run adds all child commands to the root command and sets flags, this is the entry point called by main.go
func Run() error {
	return rootCmd.Execute()
}

var (
	inventoryPath string
	scriptName    string
	scriptPath    string
	localLogDir   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&inventoryPath, "inventory",
		filepath.Join(envar.MFDDiagConfigDir(), "inventory.yaml"), "Device inventory file")
	rootCmd.PersistentFlags().StringVar(&scriptName, "script-name", "extract_crashes.sh",
		"Name of the diagnostic script on the device")
	rootCmd.PersistentFlags().StringVar(&scriptPath, "script",
		filepath.Join(envar.MFDDiagScriptDir(), "extract_crashes.sh"), "Local path of the diagnostic script")
	rootCmd.PersistentFlags().StringVar(&localLogDir, "log-dir", envar.MFDDiagLogDir(),
		"Directory pulled crash logs are stored under")

	// Add subcommands
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(hostsCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(versionCmd)
}
