package envar

import (
	"os"
	"path/filepath"
)

const (
	MFDDIAG_HOME = "MFDDIAG_HOME"
)

func UserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return home
}

func MFDDiagHome() string {
	home := os.Getenv(MFDDIAG_HOME)
	if home == "" {
		return filepath.Join(UserHome(), ".mfddiag")
	}
	return home
}

func MFDDiagConfigDir() string {
	return filepath.Join(MFDDiagHome(), "config")
}

func MFDDiagScriptDir() string {
	return filepath.Join(MFDDiagHome(), "scripts")
}

func MFDDiagLogDir() string {
	return filepath.Join(MFDDiagHome(), "crashlogs")
}
