package database

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/ardanlabs/iotledger/foundation/blockchain/canonical"
	"github.com/ardanlabs/iotledger/foundation/blockchain/merkle"
)

// BlockHeader represents the linkage and integrity information for a block.
type BlockHeader struct {
	Index         uint64 `json:"index"`         // Position of the block in the chain, genesis is 0.
	TimeStamp     uint64 `json:"timestamp"`     // Unix milliseconds when the block was created.
	PrevBlockHash string `json:"previous_hash"` // Hash of the previous block, "0" for genesis.
	Nonce         uint64 `json:"nonce"`         // Value identified to solve the hash solution.
	MerkleRoot    string `json:"merkle_root"`   // Merkle root of the transactions, empty when there are none.
}

// Block represents a group of transactions batched together. The Hash field
// is empty until the block is sealed.
type Block struct {
	Header BlockHeader
	Trans  []Tx
	Hash   string
}

// blockHashable is the value that is hashed to identify a block. Fields are
// declared in lexicographic order of their json names so the canonical
// encoding is fixed.
type blockHashable struct {
	Index         uint64 `json:"index"`
	MerkleRoot    string `json:"merkle_root"`
	Nonce         uint64 `json:"nonce"`
	PrevBlockHash string `json:"previous_hash"`
	TimeStamp     uint64 `json:"timestamp"`
	Trans         []Tx   `json:"transactions"`
}

// CalculateHash returns the hash for the block computed from its current
// fields. The merkle root is recomputed from the transactions rather than
// taken from the header.
func (b Block) CalculateHash() (string, error) {
	root, err := MerkleRoot(b.Trans)
	if err != nil {
		return "", err
	}

	return b.hashWithRoot(root)
}

// IsSealed reports whether the block has been given a hash.
func (b Block) IsSealed() bool {
	return b.Hash != ""
}

// Tree constructs the merkle tree for the block's transactions.
func (b Block) Tree() (*merkle.Tree[Tx], error) {
	return merkle.NewTree(b.Trans)
}

// hashWithRoot hashes the block using an already computed merkle root.
func (b Block) hashWithRoot(root string) (string, error) {
	trans := b.Trans
	if trans == nil {
		trans = []Tx{}
	}

	data, err := canonical.Encode(blockHashable{
		Index:         b.Header.Index,
		MerkleRoot:    root,
		Nonce:         b.Header.Nonce,
		PrevBlockHash: b.Header.PrevBlockHash,
		TimeStamp:     b.Header.TimeStamp,
		Trans:         trans,
	})
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// MerkleRoot returns the hex merkle root for the ordered transactions. An
// empty set of transactions has an empty root.
func MerkleRoot(trans []Tx) (string, error) {
	if len(trans) == 0 {
		return "", nil
	}

	tree, err := merkle.NewTree(trans)
	if err != nil {
		return "", err
	}

	return tree.RootHex(), nil
}

// =============================================================================

// BlockData represents what is written to storage and sent over the API.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []Tx        `json:"transactions"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	trans := block.Trans
	if trans == nil {
		trans = []Tx{}
	}

	return BlockData{
		Hash:   block.Hash,
		Header: block.Header,
		Trans:  trans,
	}
}

// ToBlock converts a BlockData into a Block. The merkle root is always
// derived from the stored transactions.
func ToBlock(blockData BlockData) (Block, error) {
	root, err := MerkleRoot(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	header := blockData.Header
	header.MerkleRoot = root

	trans := blockData.Trans
	if trans == nil {
		trans = []Tx{}
	}

	block := Block{
		Header: header,
		Trans:  trans,
		Hash:   blockData.Hash,
	}

	return block, nil
}

// EncodeBlockData returns the canonical encoding of the block for storage.
func EncodeBlockData(block Block) ([]byte, error) {
	return canonical.Encode(NewBlockData(block))
}

// DecodeBlock reads a block from its stored encoding. Transaction numbers
// are kept as their exact text so the recomputed hash matches.
func DecodeBlock(data []byte) (Block, error) {
	var blockData BlockData
	if err := canonical.Decode(data, &blockData); err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// EncodeTrans returns the stored form of a set of transactions.
func EncodeTrans(trans []Tx) (string, error) {
	if trans == nil {
		trans = []Tx{}
	}

	data, err := canonical.Encode(trans)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// DecodeTrans reads a set of transactions from their stored form.
func DecodeTrans(data string) ([]Tx, error) {
	var trans []Tx
	if err := canonical.Decode([]byte(data), &trans); err != nil {
		return nil, err
	}

	if trans == nil {
		return nil, errors.New("stored transactions are null")
	}

	return trans, nil
}
