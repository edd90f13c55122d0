package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var sign bool

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send readings from four simulated devices",
	RunE:  simulateRun,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().BoolVarP(&sign, "sign", "s", false, "Sign the readings with the device key.")
}

func simulateRun(cmd *cobra.Command, args []string) error {
	var privateKey *ecdsa.PrivateKey
	if sign {
		var err error
		if privateKey, err = crypto.LoadECDSA(getPrivateKeyPath()); err != nil {
			return err
		}
	}

	now := time.Now().UTC().UnixMilli()
	readings := []map[string]any{
		{"device": "Raspberry Pi 1", "distance": 120, "timestamp": now},
		{"device": "Raspberry Pi 2", "distance": 151, "timestamp": now},
		{"device": "Raspberry Pi 3", "distance": 130, "timestamp": now},
		{"device": "Raspberry Pi 4", "distance": 140, "timestamp": now},
	}

	for _, record := range readings {
		if err := sendReading(cmd, record, privateKey); err != nil {
			return fmt.Errorf("device %s: %w", record["device"], err)
		}
	}

	return nil
}
