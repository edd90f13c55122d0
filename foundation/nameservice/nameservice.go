// Package nameservice reads a folder of device keys and creates a name
// service lookup for the devices that sign readings.
package nameservice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const keyExt = ".ecdsa"

// NameService maintains a map of device addresses for name lookup.
type NameService struct {
	devices map[common.Address]string
}

// New constructs a name service with the devices whose keys are found
// under the root folder. The file name of a key is the device name.
func New(root string) (*NameService, error) {
	ns := NameService{
		devices: make(map[common.Address]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != keyExt {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading key %s: %w", fileName, err)
		}

		address := crypto.PubkeyToAddress(privateKey.PublicKey)
		ns.devices[address] = strings.TrimSuffix(filepath.Base(fileName), keyExt)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified device address. The address is
// returned when the device isn't known.
func (ns *NameService) Lookup(address string) string {
	if !common.IsHexAddress(address) {
		return address
	}

	name, exists := ns.devices[common.HexToAddress(address)]
	if !exists {
		return address
	}
	return name
}

// Copy returns a copy of the map of device addresses and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.devices))
	for address, name := range ns.devices {
		cpy[address.Hex()] = name
	}
	return cpy
}

// Len returns the number of known devices.
func (ns *NameService) Len() int {
	return len(ns.devices)
}
