package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verbose bool

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List the persisted chain",
	RunE:  blocksRun,
}

func init() {
	rootCmd.AddCommand(blocksCmd)
	blocksCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the transactions of every block.")
}

func blocksRun(cmd *cobra.Command, args []string) error {
	chain, err := readChain()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, block := range chain {
		fmt.Fprintf(out, "Block %d: Trans[%d] Timestamp[%d] Nonce[%d] PrevHash[%s] Hash[%s]\n",
			block.Header.Index, len(block.Trans), block.Header.TimeStamp, block.Header.Nonce, block.Header.PrevBlockHash, block.Hash)

		if verbose {
			for _, tx := range block.Trans {
				fmt.Fprintf(out, "\t%s\n", tx)
			}
		}
	}

	return nil
}
