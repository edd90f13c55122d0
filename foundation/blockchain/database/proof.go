package database

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ardanlabs/iotledger/foundation/blockchain/merkle"
)

// TxProof is a merkle inclusion proof for one transaction of a sealed
// block. Hashes are hex encoded. An Order of 0 means the sibling is
// concatenated first.
type TxProof struct {
	Index      uint64   `json:"index"`
	Position   int      `json:"position"`
	Tx         Tx       `json:"transaction"`
	TxHash     string   `json:"tx_hash"`
	MerkleRoot string   `json:"merkle_root"`
	Hashes     []string `json:"proof"`
	Order      []int64  `json:"order"`
}

// Proof produces the inclusion proof for the transaction at the specified
// position in the block.
func (b Block) Proof(position int) (TxProof, error) {
	if position < 0 || position >= len(b.Trans) {
		return TxProof{}, fmt.Errorf("blk[%d]: position %d out of range, %d transactions", b.Header.Index, position, len(b.Trans))
	}

	tree, err := b.Tree()
	if err != nil {
		return TxProof{}, err
	}

	tx := b.Trans[position]
	proof, order, err := tree.Proof(tx)
	if err != nil {
		return TxProof{}, err
	}

	leaf, err := tx.Hash()
	if err != nil {
		return TxProof{}, err
	}

	hashes := make([]string, len(proof))
	for i, h := range proof {
		hashes[i] = hex.EncodeToString(h)
	}

	txProof := TxProof{
		Index:      b.Header.Index,
		Position:   position,
		Tx:         tx,
		TxHash:     hex.EncodeToString(leaf),
		MerkleRoot: tree.RootHex(),
		Hashes:     hashes,
		Order:      order,
	}

	return txProof, nil
}

// Verify checks the proof lands on its merkle root starting from the hash
// of its transaction.
func (p TxProof) Verify() (bool, error) {
	leaf, err := p.Tx.Hash()
	if err != nil {
		return false, err
	}

	root, err := hex.DecodeString(p.MerkleRoot)
	if err != nil {
		return false, fmt.Errorf("merkle root: %w", err)
	}

	proof := make([][]byte, len(p.Hashes))
	for i, h := range p.Hashes {
		if proof[i], err = hex.DecodeString(h); err != nil {
			return false, fmt.Errorf("proof[%d]: %w", i, err)
		}
	}

	return merkle.VerifyProof(sha256.New, leaf, proof, p.Order, root)
}
