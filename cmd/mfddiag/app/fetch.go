package app

import (
	"fmt"
	"path/filepath"

	"github.com/navtools/mfddiag/pkg/archive"
	"github.com/navtools/mfddiag/pkg/envar"
	"github.com/navtools/mfddiag/pkg/fetch"
	"github.com/navtools/mfddiag/pkg/log"
	"github.com/spf13/cobra"
)

var (
	bundleChecksum string
	extractBundle  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download the diagnostic script bundle",
	Long: `Fetch downloads the diagnostic script bundle from the given URL into the
local script directory, optionally verifying its SHA256 checksum and
extracting it when it is a tarball.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		destPath := filepath.Join(envar.MFDDiagScriptDir(), filepath.Base(url))

		fetcher := fetch.NewFetcher()
		if err := fetcher.DownloadVerified(cmd.Context(), url, destPath, bundleChecksum); err != nil {
			return err
		}

		if !extractBundle {
			return nil
		}
		if _, err := archive.DetectFormat(destPath); err != nil {
			// Plain script file, nothing to extract
			log.Infof("Downloaded %s", destPath)
			return nil
		}

		compressor, err := archive.NewCompressor()
		if err != nil {
			return err
		}
		defer compressor.Close()

		if err := compressor.Extract(destPath, envar.MFDDiagScriptDir()); err != nil {
			return fmt.Errorf("extracting script bundle: %w", err)
		}
		log.Infof("Extracted script bundle into %s", envar.MFDDiagScriptDir())
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&bundleChecksum, "sha256", "", "Expected SHA256 checksum of the bundle")
	fetchCmd.Flags().BoolVar(&extractBundle, "extract", true, "Extract the bundle after downloading")
}
