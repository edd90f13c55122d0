package ledgergrp

import (
	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/ardanlabs/iotledger/foundation/blockchain/signature"
	"github.com/ardanlabs/iotledger/foundation/nameservice"
)

type tx struct {
	DeviceName string      `json:"device_name,omitempty"`
	Data       database.Tx `json:"data"`
}

type block struct {
	Index        uint64 `json:"index"`
	Timestamp    uint64 `json:"timestamp"`
	PrevHash     string `json:"previous_hash"`
	Nonce        uint64 `json:"nonce"`
	MerkleRoot   string `json:"merkle_root"`
	Hash         string `json:"hash"`
	Transactions []tx   `json:"transactions"`
}

type txReceipt struct {
	Status      string `json:"status"`
	Pending     int    `json:"pending"`
	Block       *block `json:"block,omitempty"`
	MiningError string `json:"mining_error,omitempty"`
}

type chainInfo struct {
	Height   uint64  `json:"height"`
	Pending  int     `json:"pending"`
	Blocks   []block `json:"blocks"`
	LastHash string  `json:"last_hash"`
}

// =============================================================================

func toTx(ns *nameservice.NameService, t database.Tx) tx {
	var name string
	if from, ok := t[signature.FieldFrom].(string); ok && ns != nil {
		name = ns.Lookup(from)
	}

	return tx{
		DeviceName: name,
		Data:       t,
	}
}

func toTxs(ns *nameservice.NameService, trans []database.Tx) []tx {
	out := make([]tx, len(trans))
	for i, t := range trans {
		out[i] = toTx(ns, t)
	}
	return out
}

func toBlock(ns *nameservice.NameService, b database.Block) block {
	return block{
		Index:        b.Header.Index,
		Timestamp:    b.Header.TimeStamp,
		PrevHash:     b.Header.PrevBlockHash,
		Nonce:        b.Header.Nonce,
		MerkleRoot:   b.Header.MerkleRoot,
		Hash:         b.Hash,
		Transactions: toTxs(ns, b.Trans),
	}
}
