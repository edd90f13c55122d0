// This program manages device keys and sends signed readings to the ledger.
package main

import "github.com/ardanlabs/iotledger/app/tooling/device/cmd"

func main() {
	cmd.Execute()
}
