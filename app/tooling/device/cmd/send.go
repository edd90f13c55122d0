package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/iotledger/foundation/blockchain/canonical"
	"github.com/ardanlabs/iotledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var reading string

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a reading and send it to the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}

		var record map[string]any
		if err := canonical.Decode([]byte(reading), &record); err != nil {
			return fmt.Errorf("parsing reading: %w", err)
		}

		return sendReading(cmd, record, privateKey)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&reading, "reading", "r", "", "Reading to send as a JSON object.")
	sendCmd.MarkFlagRequired("reading")
}

type receipt struct {
	Status      string `json:"status"`
	Pending     int    `json:"pending"`
	MiningError string `json:"mining_error"`
	Error       string `json:"error"`
	Block       *struct {
		Index uint64 `json:"index"`
		Hash  string `json:"hash"`
	} `json:"block"`
}

// sendReading stamps the reading with the current time when it has none,
// signs it when a key is provided and posts it to the ledger.
func sendReading(cmd *cobra.Command, record map[string]any, privateKey *ecdsa.PrivateKey) error {
	if _, exists := record["timestamp"]; !exists {
		record["timestamp"] = time.Now().UTC().UnixMilli()
	}

	if privateKey != nil {
		var err error
		if record, err = signature.Sign(record, privateKey); err != nil {
			return err
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/add", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rcpt receipt
	if err := json.NewDecoder(resp.Body).Decode(&rcpt); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	switch {
	case rcpt.Error != "":
		return fmt.Errorf("ledger rejected reading: %d: %s", resp.StatusCode, rcpt.Error)
	case rcpt.Block != nil:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: sealed blk[%d]: hash[%s]\n", rcpt.Status, rcpt.Block.Index, rcpt.Block.Hash)
	case rcpt.MiningError != "":
		fmt.Fprintf(cmd.OutOrStdout(), "%s: pending[%d]: %s\n", rcpt.Status, rcpt.Pending, rcpt.MiningError)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: pending[%d]\n", rcpt.Status, rcpt.Pending)
	}

	return nil
}
