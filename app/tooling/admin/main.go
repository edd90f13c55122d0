// This program performs administrative tasks against the ledger's block store.
package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/iotledger/app/tooling/admin/cmd"
	"github.com/ardanlabs/iotledger/foundation/logger"
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cmd.Execute(); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}
