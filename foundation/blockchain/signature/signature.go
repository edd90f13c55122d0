// Package signature provides helper functions for signing device readings
// and recovering the device address from a signed reading.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/ardanlabs/iotledger/foundation/blockchain/canonical"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Fields a signed reading carries in addition to its measurements.
const (
	FieldFrom      = "from"
	FieldSignature = "signature"
)

// Set of errors for verifying a reading.
var (
	ErrNotSigned      = errors.New("reading is not signed")
	ErrInvalidSigner  = errors.New("signature doesn't match the from address")
	ErrInvalidReading = errors.New("invalid signed reading")
)

// ledgerID is an arbitrary number added to the recovery id. This will make
// it clear the signature was produced for the ledger. Ethereum and Bitcoin
// do this as well, but they use the value of 27.
const ledgerID = 29

// =============================================================================

// IsSigned reports whether the reading carries a signature.
func IsSigned(record map[string]any) bool {
	_, exists := record[FieldSignature]
	return exists
}

// Sign uses the specified private key to sign the reading. A copy of the
// reading is returned with the device address and signature fields added.
func Sign(record map[string]any, privateKey *ecdsa.PrivateKey) (map[string]any, error) {
	signed := maps.Clone(record)
	delete(signed, FieldSignature)
	signed[FieldFrom] = crypto.PubkeyToAddress(privateKey.PublicKey).Hex()

	// Prepare the data for signing.
	data, err := stamp(signed)
	if err != nil {
		return nil, err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return nil, errors.New("invalid signature")
	}

	sig[crypto.RecoveryIDOffset] += ledgerID
	signed[FieldSignature] = hexutil.Encode(sig)

	return signed, nil
}

// Verify checks the signature of a reading against its from field and
// returns the address of the device that signed it.
func Verify(record map[string]any) (string, error) {
	sigStr, ok := record[FieldSignature].(string)
	if !ok {
		return "", ErrNotSigned
	}

	from, ok := record[FieldFrom].(string)
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidReading, FieldFrom)
	}

	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}

	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: signature length %d", ErrInvalidReading, len(sig))
	}

	// Check the recovery id is either 0 or 1.
	v := sig[crypto.RecoveryIDOffset] - ledgerID
	if v != 0 && v != 1 {
		return "", fmt.Errorf("%w: invalid recovery id", ErrInvalidReading)
	}
	sig[crypto.RecoveryIDOffset] = v

	unsigned := maps.Clone(record)
	delete(unsigned, FieldSignature)

	data, err := stamp(unsigned)
	if err != nil {
		return "", err
	}

	// Capture the public key associated with this data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}

	address := crypto.PubkeyToAddress(*publicKey).Hex()
	if !strings.EqualFold(address, from) {
		return "", ErrInvalidSigner
	}

	return address, nil
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this reading with
// the ledger stamp embedded into the final hash. The canonical encoding
// is used so the node computes the same bytes the device signed.
func stamp(record map[string]any) ([]byte, error) {
	v, err := canonical.Encode(record)
	if err != nil {
		return nil, err
	}

	// Hash the data into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := crypto.Keccak256(v)

	stamp := []byte("\x19IoT Ledger Signed Reading:\n32")

	// Hash the stamp and txHash together in a final 32 byte array
	// that represents the data.
	return crypto.Keccak256(stamp, txHash), nil
}
