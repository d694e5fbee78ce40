package cache

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/jonwraymond/embedcache/observe"
)

func newTestLRU(t *testing.T, size int) (*LRUStore, *DiskStore, *recordingLogger) {
	t.Helper()
	disk, logger := newTestStore(t)
	lru := NewLRUStore(disk, LRUConfig{
		Size:      size,
		Telemetry: observe.NewTelemetry(nil, nil, logger),
	})
	return lru, disk, logger
}

func TestLRUStore_Defaults(t *testing.T) {
	disk, _ := newTestStore(t)
	lru := NewLRUStore(disk, LRUConfig{})

	if lru.Dimension() != testDim {
		t.Errorf("Dimension() = %d, want %d", lru.Dimension(), testDim)
	}
	if lru.Len() != 0 {
		t.Errorf("Len() = %d, want 0", lru.Len())
	}
}

func TestLRUStore_SaveWritesThrough(t *testing.T) {
	ctx := context.Background()
	lru, disk, _ := newTestLRU(t, 8)
	key := NewKeyEncoder().EncodeText("x")

	if err := lru.Save(ctx, key, fakeVector("x")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := disk.Exists(ctx, key); !ok {
		t.Error("Save() should reach the backing store")
	}
	if lru.Len() != 1 {
		t.Errorf("Len() = %d, want 1", lru.Len())
	}
}

func TestLRUStore_ServesFromMemory(t *testing.T) {
	ctx := observe.WithOp(context.Background(), "embed_one")
	lru, disk, logger := newTestLRU(t, 8)
	key := NewKeyEncoder().EncodeText("x")

	if err := lru.Save(ctx, key, fakeVector("x")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(disk.Path(key)); err != nil {
		t.Fatal(err)
	}

	ok, err := lru.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v, want true from memory", ok, err)
	}

	var v Vector
	if err := lru.Load(ctx, key, &v); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(v, fakeVector("x")) {
		t.Errorf("Load() = %v, want %v", v, fakeVector("x"))
	}
	if logger.count("embed_one: loaded: "+disk.Path(key)) != 1 {
		t.Errorf("memory hit should log the load, got %q", logger.messages())
	}
}

func TestLRUStore_LoadFillsMemory(t *testing.T) {
	ctx := context.Background()
	lru, disk, _ := newTestLRU(t, 8)
	key := NewKeyEncoder().EncodeText("x")

	if err := disk.Save(ctx, key, fakeVector("x")); err != nil {
		t.Fatal(err)
	}
	var v Vector
	if err := lru.Load(ctx, key, &v); err != nil {
		t.Fatal(err)
	}
	if lru.Len() != 1 {
		t.Errorf("Len() = %d after load, want 1", lru.Len())
	}
}

func TestLRUStore_LoadedValuesAreIndependent(t *testing.T) {
	ctx := context.Background()
	lru, _, _ := newTestLRU(t, 8)
	key := NewKeyEncoder().EncodeText("x")

	if err := lru.Save(ctx, key, fakeVector("x")); err != nil {
		t.Fatal(err)
	}
	var first Vector
	if err := lru.Load(ctx, key, &first); err != nil {
		t.Fatal(err)
	}
	first[0] = 999

	var second Vector
	if err := lru.Load(ctx, key, &second); err != nil {
		t.Fatal(err)
	}
	if second[0] == 999 {
		t.Error("mutating a loaded vector should not affect the cached entry")
	}
}

func TestLRUStore_EvictsBySize(t *testing.T) {
	ctx := context.Background()
	lru, _, _ := newTestLRU(t, 2)
	enc := NewKeyEncoder()

	for _, text := range []string{"a", "b", "c"} {
		if err := lru.Save(ctx, enc.EncodeText(text), fakeVector(text)); err != nil {
			t.Fatal(err)
		}
	}
	if lru.Len() != 2 {
		t.Errorf("Len() = %d, want 2", lru.Len())
	}

	// Evicted entries are still served by the backing store.
	var v Vector
	if err := lru.Load(ctx, enc.EncodeText("a"), &v); err != nil {
		t.Errorf("Load() of evicted entry error = %v", err)
	}
}

func TestLRUStore_TTL(t *testing.T) {
	ctx := context.Background()
	disk, _ := newTestStore(t)
	lru := NewLRUStore(disk, LRUConfig{Size: 8, TTL: 20 * time.Millisecond})
	key := NewKeyEncoder().EncodeText("x")

	if err := lru.Save(ctx, key, fakeVector("x")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(disk.Path(key)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(60 * time.Millisecond)

	var v Vector
	if err := lru.Load(ctx, key, &v); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after TTL error = %v, want ErrNotFound", err)
	}
}

func TestLRUStore_WithDirSharesMemory(t *testing.T) {
	ctx := context.Background()
	lru, _, _ := newTestLRU(t, 8)
	other := t.TempDir()
	key := NewKeyEncoder().EncodeText("x")

	rebased := lru.WithDir(other)
	if err := rebased.Save(ctx, key, fakeVector("x")); err != nil {
		t.Fatal(err)
	}
	if lru.Len() != 1 {
		t.Errorf("rebased saves should share the memory tier, Len() = %d", lru.Len())
	}
	if ok, _ := lru.Exists(ctx, key); ok {
		t.Error("entries are keyed by path, the original directory should not see them")
	}
}

func TestLRUStore_WithDirWithoutRebaser(t *testing.T) {
	lru := NewLRUStore(plainStore{}, LRUConfig{})
	if got := lru.WithDir(t.TempDir()); got != Store(lru) {
		t.Error("WithDir over a non-rebasable store should return the receiver")
	}
}
