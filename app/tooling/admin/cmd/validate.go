package cmd

import (
	"fmt"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the persisted chain",
	RunE:  validateRun,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateRun(cmd *cobra.Command, args []string) error {
	chain, err := readChain()
	if err != nil {
		return err
	}

	verdict := database.ValidateChain(chain, difficulty)
	if err := verdict.Err(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "The chain is valid: blocks[%d]\n", len(chain))
	return nil
}
