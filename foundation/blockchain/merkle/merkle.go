// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkle tree used to
// summarize the ordered transactions of a block into a single root hash.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
)

// ErrNoContent is returned when a tree is requested for an empty set of values.
var ErrNoContent = errors.New("cannot construct tree with no content")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch.
//
// A tree over a single value has that value's leaf as its root. Otherwise
// adjacent nodes are paired left to right, and a level with an odd count pairs
// its last node with itself.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return ErrNoContent
	}

	leafs := make([]*Node[T], 0, len(values))
	for _, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return err
		}

		leafs = append(leafs, &Node[T]{
			Hash:  hash,
			Value: value,
			leaf:  true,
			Tree:  t,
		})
	}

	root := leafs[0]
	if len(leafs) > 1 {
		var err error
		if root, err = buildIntermediate(leafs, t); err != nil {
			return err
		}
	}

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Rebuild is a helper function that will rebuild the tree reusing only the
// data that it currently holds in the leaves.
func (t *Tree[T]) Rebuild() error {
	return t.Generate(t.Values())
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. An order of 0 means the proof
// hash is concatenated first, 1 means it is concatenated second.
//
//	h := leafHash
//	for i := range proof {
//		if order[i] == 0 {
//			h = sha256(proof[i] || h)
//		} else {
//			h = sha256(h || proof[i])
//		}
//	}
//
// The final h should match the merkle root.
func (t *Tree[T]) Proof(data T) ([][]byte, []int64, error) {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		var merkleProof [][]byte
		var order []int64

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			if parent.Left == node {
				merkleProof = append(merkleProof, parent.Right.Hash)
				order = append(order, 1) // right leaf, concat second.
			} else {
				merkleProof = append(merkleProof, parent.Left.Hash)
				order = append(order, 0) // left leaf, concat first.
			}
			node = parent
		}

		return merkleProof, order, nil
	}

	return nil, nil, errors.New("unable to find data in tree")
}

// VerifyProof walks a proof produced by Proof from the hash of a value up to
// a root and reports whether it lands on the expected root.
func VerifyProof(hashStrategy func() hash.Hash, leafHash []byte, proof [][]byte, order []int64, root []byte) (bool, error) {
	if len(proof) != len(order) {
		return false, errors.New("proof and order length mismatch")
	}

	current := leafHash
	for i, sibling := range proof {
		h := hashStrategy()

		var err error
		switch order[i] {
		case 0:
			_, err = h.Write(concat(sibling, current))
		default:
			_, err = h.Write(concat(current, sibling))
		}
		if err != nil {
			return false, err
		}

		current = h.Sum(nil)
	}

	return bytes.Equal(current, root), nil
}

// Verify validates the hashes at each level of the tree and returns an error
// if the resulting hash at the root of the tree doesn't match the root hash.
func (t *Tree[T]) Verify() error {
	calculatedMerkleRoot, err := t.Root.verify()
	if err != nil {
		return err
	}

	if !bytes.Equal(t.MerkleRoot, calculatedMerkleRoot) {
		return errors.New("root hash invalid")
	}

	return nil
}

// VerifyData indicates whether a given piece of data is in the tree and if the
// hashes are valid for that data. Returns nil if the expected merkle root is
// equivalent to the merkle root calculated on the critical path for a given
// piece of data.
func (t *Tree[T]) VerifyData(data T) error {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		if _, err := node.CalculateHash(); err != nil {
			return err
		}

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			calculated, err := parent.CalculateHash()
			if err != nil {
				return err
			}

			if !bytes.Equal(calculated, parent.Hash) {
				return errors.New("merkle root is not equivalent to the merkle root calculated on the critical path")
			}
		}

		if !bytes.Equal(t.Root.Hash, t.MerkleRoot) {
			return errors.New("merkle root is not equivalent to the merkle root calculated on the critical path")
		}

		return nil
	}

	return errors.New("unable to find data in tree")
}

// Values returns the values stored in the tree in their original order.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.Leafs))
	for i, node := range t.Leafs {
		values[i] = node.Value
	}

	return values
}

// RootHex converts the merkle root byte hash to a hex encoded string without
// any prefix.
func (t *Tree[T]) RootHex() string {
	return hex.EncodeToString(t.MerkleRoot)
}

// String returns a string representation of the tree. Only leaf nodes are
// included in the output.
func (t *Tree[T]) String() string {
	s := ""

	for _, l := range t.Leafs {
		s += fmt.Sprint(l)
		s += "\n"
	}

	return s
}

// MarshalText implements the TextMarshaler interface and produces a panic
// if anyone tries to marshal the Merkle tree. Use the Values function to
// return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	panic("do not marshal the merkle tree, use Values")
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to its
// immediate relationships, a hash, the data if it is a leaf, and other metadata.
type Node[T Hashable[T]] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   []byte
	Value  T
	leaf   bool
}

// verify walks down the tree until hitting a leaf, calculating the hash at
// each level and returning the resulting hash of the node.
func (n *Node[T]) verify() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	leftBytes, err := n.Left.verify()
	if err != nil {
		return nil, err
	}

	// A duplicated node shares the left child's hash.
	rightBytes := leftBytes
	if n.Right != n.Left {
		if rightBytes, err = n.Right.verify(); err != nil {
			return nil, err
		}
	}

	h := n.Tree.hashStrategy()
	if _, err := h.Write(concat(leftBytes, rightBytes)); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// CalculateHash is a helper function that calculates the hash of the node.
func (n *Node[T]) CalculateHash() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	h := n.Tree.hashStrategy()
	if _, err := h.Write(concat(n.Left.Hash, n.Right.Hash)); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// String returns a string representation of the node.
func (n *Node[T]) String() string {
	return fmt.Sprintf("%t %x %v", n.leaf, n.Hash, n.Value)
}

// =============================================================================

// buildIntermediate reduces the leaf level one level at a time until a
// single root node remains. The loop keeps stack usage flat no matter how
// many values the tree holds.
func buildIntermediate[T Hashable[T]](level []*Node[T], t *Tree[T]) (*Node[T], error) {
	for len(level) > 1 {
		next := make([]*Node[T], 0, (len(level)+1)/2)

		for i := 0; i < len(level); i += 2 {
			left, right := level[i], level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}

			h := t.hashStrategy()
			if _, err := h.Write(concat(left.Hash, right.Hash)); err != nil {
				return nil, err
			}

			n := Node[T]{
				Left:  left,
				Right: right,
				Hash:  h.Sum(nil),
				Tree:  t,
			}

			left.Parent = &n
			right.Parent = &n
			next = append(next, &n)
		}

		level = next
	}

	return level[0], nil
}

// concat joins two hashes into a fresh slice so neither input is aliased.
func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
