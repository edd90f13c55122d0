// Package cmd contains the admin app.
package cmd

import (
	"fmt"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage"
	"github.com/spf13/cobra"
)

var (
	storeKind  string
	storeDSN   string
	storePath  string
	difficulty uint
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&storeKind, "kind", "k", storage.KindDisk, "Kind of block store: postgres|sqlite|leveldb|disk.")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "dsn", "", "Connection string for the sql stores.")
	rootCmd.PersistentFlags().StringVar(&storePath, "path", "zblock/blocks", "Path for the file stores.")
	rootCmd.PersistentFlags().UintVar(&difficulty, "difficulty", 2, "Leading zeros required of every block hash.")
}

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administer the ledger's block store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// readChain loads every persisted block from the configured store.
func readChain() ([]database.Block, error) {
	store, err := storage.Open(storage.Config{
		Kind: storeKind,
		DSN:  storeDSN,
		Path: storePath,
	})
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing %s store: %w", storeKind, err)
	}
	defer store.Close()

	return store.ReadAll()
}
