package disk_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage/storagetest"
)

func TestStorage(t *testing.T) {
	store, err := disk.New(filepath.Join(t.TempDir(), "blocks"))
	if err != nil {
		t.Fatalf("unable to construct store: %v", err)
	}

	storagetest.Run(t, store)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	chain := storagetest.Chain(t, 2)

	store, err := disk.New(dir)
	if err != nil {
		t.Fatalf("unable to construct store: %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("unable to initialize store: %v", err)
	}
	for _, block := range chain {
		if err := store.Write(block); err != nil {
			t.Fatalf("unable to write block: %v", err)
		}
	}

	// Files that aren't blocks are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("unable to write file: %v", err)
	}

	reopened, err := disk.New(dir)
	if err != nil {
		t.Fatalf("unable to construct store: %v", err)
	}

	blocks, err := reopened.ReadAll()
	if err != nil {
		t.Fatalf("unable to read blocks: %v", err)
	}

	if !reflect.DeepEqual(blocks, chain) {
		t.Fatalf("expected the same chain after reopening the folder")
	}
}

func TestConfiguration(t *testing.T) {
	if _, err := disk.New(""); !errors.Is(err, database.ErrStoreConfiguration) {
		t.Fatalf("expected a configuration error, got %v", err)
	}

	store, err := disk.New(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("unable to construct store: %v", err)
	}

	if _, _, err := store.MaxIndex(); !errors.Is(err, database.ErrStoreConnection) {
		t.Fatalf("expected a connection error before initialize, got %v", err)
	}
}
