// Package cmd contains the device app.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	deviceName string
	devicePath string
	url        string
)

const (
	keyExtension = ".ecdsa"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "device.ecdsa", "Name of the device key.")
	rootCmd.PersistentFlags().StringVarP(&devicePath, "device-path", "p", "zblock/devices/", "Path to the directory with device keys.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the ledger.")
}

var rootCmd = &cobra.Command{
	Use:          "device",
	Short:        "Device keys and readings for the ledger",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	name := deviceName
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}

	return filepath.Join(devicePath, name)
}
