package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Device models this tool knows how to collect from. The model decides where
// the diagnostic script lives on the device filesystem.
const (
	ModelAxiom  = "Axiom"
	ModelAxiom2 = "Axiom 2"
)

// Device describes one MFD in the inventory.
type Device struct {
	Name         string `yaml:"name"`
	Model        string `yaml:"model"`
	SerialNumber string `yaml:"serialNumber"`
	System       string `yaml:"system,omitempty"`
	Host         string `yaml:"host"`
	User         string `yaml:"user"`
	// KeyFile is optional; devices without one authenticate by identity
	// alone over a keyless handshake.
	KeyFile string `yaml:"keyFile,omitempty"`
}

// Validate checks the fields a collection run cannot work without.
func (d *Device) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("device has no name")
	}
	if d.Host == "" {
		return fmt.Errorf("device %s has no host address", d.Name)
	}
	if d.User == "" {
		return fmt.Errorf("device %s has no user", d.Name)
	}
	if _, err := RemoteScriptDir(d.Model); err != nil {
		return err
	}
	return nil
}

// DirName returns the local directory name for this device's pulled logs.
func (d *Device) DirName() string {
	name := fmt.Sprintf("%s_%s", d.Name, d.SerialNumber)
	return strings.ReplaceAll(name, " ", "_")
}

// RemoteScriptDir returns the model-specific directory the diagnostic script
// is pushed to.
func RemoteScriptDir(model string) (string, error) {
	switch model {
	case ModelAxiom:
		return "/data/raymarine", nil
	case ModelAxiom2:
		return "/data/vendor/raymarine", nil
	default:
		return "", fmt.Errorf("unknown device model %q, cannot determine script path", model)
	}
}

// Inventory is the set of devices the tool operates on.
type Inventory struct {
	Devices []Device `yaml:"devices"`
}

// LoadInventory reads a device inventory from a YAML file.
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file %s: %w", path, err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file %s: %w", path, err)
	}
	return &inv, nil
}

// Save writes the inventory to a YAML file, creating the directory if
// needed.
func (inv *Inventory) Save(path string) error {
	data, err := yaml.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create inventory directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write inventory file %s: %w", path, err)
	}
	return nil
}

// DeviceByName looks a device up by its inventory name.
func (inv *Inventory) DeviceByName(name string) (*Device, bool) {
	for i := range inv.Devices {
		if inv.Devices[i].Name == name {
			return &inv.Devices[i], true
		}
	}
	return nil, false
}
