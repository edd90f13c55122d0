package database

import "time"

// GenesisPrevHash is the previous hash recorded in the genesis block.
const GenesisPrevHash = "0"

// GenesisTrans returns the fixed transactions carried by the genesis block.
func GenesisTrans() []Tx {
	return []Tx{{"genesis": "Genesis Block"}}
}

// NewGenesis constructs the first block of a chain. The genesis block is
// hashed but not mined.
func NewGenesis(now time.Time) (Block, error) {
	genesis := Block{
		Header: BlockHeader{
			Index:         0,
			TimeStamp:     uint64(now.UTC().UnixMilli()),
			PrevBlockHash: GenesisPrevHash,
		},
		Trans: GenesisTrans(),
	}

	root, err := MerkleRoot(genesis.Trans)
	if err != nil {
		return Block{}, err
	}
	genesis.Header.MerkleRoot = root

	hash, err := genesis.hashWithRoot(root)
	if err != nil {
		return Block{}, err
	}
	genesis.Hash = hash

	return genesis, nil
}
