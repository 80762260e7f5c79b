package indexcache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type storeFactory func(t *testing.T, dir string) Store

var storeFactories = map[string]storeFactory{
	"file": func(t *testing.T, dir string) Store {
		return NewFileStore(filepath.Join(dir, ".vector_cache.json"))
	},
	"bolt": func(t *testing.T, dir string) Store {
		s, err := NewBoltStore(filepath.Join(dir, "cache.bolt"))
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		return s
	},
	"memory": func(t *testing.T, dir string) Store {
		return NewMemoryStore()
	},
}

func TestStore_GetPut(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, t.TempDir())
			defer func() {
				_ = store.Close()
			}()

			if _, found, err := store.Get(ctx, "missing"); err != nil || found {
				t.Fatalf("Get(missing) = found %v, err %v; want not found", found, err)
			}

			want := Record{ContentHash: "abc", IndexID: "vs_1", DocumentID: "file_1"}
			if err := store.Put(ctx, "Locke -- Second Treatise", want); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			got, found, err := store.Get(ctx, "Locke -- Second Treatise")
			if err != nil || !found {
				t.Fatalf("Get() = found %v, err %v; want found", found, err)
			}
			if got != want {
				t.Errorf("Get() = %+v, want %+v", got, want)
			}

			snapshot, err := store.Snapshot(ctx)
			if err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			if len(snapshot) != 1 {
				t.Errorf("Snapshot() len = %d, want 1", len(snapshot))
			}
		})
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	for name, factory := range storeFactories {
		if name == "memory" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			first := factory(t, dir)
			if err := first.Put(ctx, AllDocumentsKey, Record{ContentHash: "h", IndexID: "vs_all"}); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			_ = first.Close()

			second := factory(t, dir)
			defer func() {
				_ = second.Close()
			}()
			got, found, err := second.Get(ctx, AllDocumentsKey)
			if err != nil || !found {
				t.Fatalf("Get() = found %v, err %v; want found", found, err)
			}
			if got.IndexID != "vs_all" {
				t.Errorf("Get() IndexID = %v, want vs_all", got.IndexID)
			}
		})
	}
}

func TestStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, t.TempDir())
			defer func() {
				_ = store.Close()
			}()

			const writers = 20
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := store.Update(ctx, "counter", func(cur Record, _ bool) (Record, bool) {
						cur.IndexID += "x"
						return cur, true
					})
					if err != nil {
						t.Errorf("Update() error = %v", err)
					}
				}()
			}
			wg.Wait()

			got, _, err := store.Get(ctx, "counter")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if len(got.IndexID) != writers {
				t.Errorf("after %d updates IndexID has %d marks, want %d", writers, len(got.IndexID), writers)
			}
		})
	}
}

func TestStore_UpdateWithoutWrite(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, t.TempDir())
			defer func() {
				_ = store.Close()
			}()

			err := store.Update(ctx, "k", func(Record, bool) (Record, bool) {
				return Record{IndexID: "ignored"}, false
			})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if _, found, _ := store.Get(ctx, "k"); found {
				t.Error("Update() with write=false should not store a record")
			}
		})
	}
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".vector_cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store := NewFileStore(path)
	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("Snapshot() len = %d, want 0", len(snapshot))
	}

	if err := store.Put(ctx, "a", Record{ContentHash: "h", IndexID: "i"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, found, _ := store.Get(ctx, "a"); !found {
		t.Error("Put() after corrupt load should repair the file")
	}
}

func TestFileStore_WireFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".vector_cache.json")
	existing := `{"Hobbes -- Leviathan": {"contentHash": "h1", "indexId": "vs_h", "documentId": "file_h"}}`
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, found, err := NewFileStore(path).Get(ctx, "Hobbes -- Leviathan")
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v; want found", found, err)
	}
	want := Record{ContentHash: "h1", IndexID: "vs_h", DocumentID: "file_h"}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestHashHelpers(t *testing.T) {
	if got := ContentHash([]byte("")); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("ContentHash(empty) = %v", got)
	}
	if PairKey("a", "b") != PairKey("b", "a") {
		t.Error("PairKey() should not depend on argument order")
	}
	if PairKey("a", "b") == PairKey("a", "c") {
		t.Error("PairKey() should change when a member changes")
	}
	if CombinedHash([]string{"a", "b"}) == CombinedHash([]string{"b", "a"}) {
		t.Error("CombinedHash() should depend on order")
	}
	if SelectionKey([]string{"a", "b", "c"}) != SelectionKey([]string{"c", "a", "b"}) {
		t.Error("SelectionKey() should not depend on order")
	}
	if !IsReserved(AllDocumentsKey) || !IsReserved(PairKey("a", "b")) || IsReserved("Locke -- Essay") {
		t.Error("IsReserved() misclassified a key")
	}
}
