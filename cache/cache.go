// Package cache implements the layered, transactional key-value wrapper
// every other component reads and writes state through (component C, §4.C):
// read-through to a parent layer or the base KvStore, buffered writes, an
// explicit erased-key set (so a delete shadows a parent's value instead of
// merely being absent), and commit/rollback.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"wakichain/storage"
)

// Source is anything a Layer can read through to: either another Layer or
// the BaseStore adapter over a storage.Database.
type Source interface {
	Get(key []byte) (value []byte, found bool, err error)
}

// BaseStore adapts a storage.Database into a Source/Writer pair, translating
// the backend's not-found sentinel into the (value, found, err) shape the
// cache layer expects.
type BaseStore struct {
	db storage.Database
}

func NewBaseStore(db storage.Database) *BaseStore {
	return &BaseStore{db: db}
}

func (b *BaseStore) Get(key []byte) ([]byte, bool, error) {
	v, err := b.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// Layer is one level of the cache wrapper. It never mutates its parent until
// Commit is called, so a chain of layers models nested, independently
// abortable transactions (one per in-flight block, one per transaction
// inside that block).
type Layer struct {
	parent Source
	writes map[string][]byte
	erased map[string]struct{}
}

// NewLayer builds a layer reading through to parent. A nil parent models the
// genesis layer with no prior state.
func NewLayer(parent Source) *Layer {
	return &Layer{
		parent: parent,
		writes: make(map[string][]byte),
		erased: make(map[string]struct{}),
	}
}

// Child opens a new layer on top of this one, for scoping a single
// transaction's writes within a block's layer.
func (l *Layer) Child() *Layer {
	return NewLayer(l)
}

// Get reads key, consulting this layer's buffered writes and erasures before
// falling through to the parent.
func (l *Layer) Get(key []byte) ([]byte, bool, error) {
	k := string(key)
	if _, erased := l.erased[k]; erased {
		return nil, false, nil
	}
	if v, ok := l.writes[k]; ok {
		return append([]byte(nil), v...), true, nil
	}
	if l.parent == nil {
		return nil, false, nil
	}
	return l.parent.Get(key)
}

// Put buffers a write, clearing any prior erasure of the same key.
func (l *Layer) Put(key, value []byte) {
	k := string(key)
	delete(l.erased, k)
	l.writes[k] = append([]byte(nil), value...)
}

// Erase records key as deleted in this layer, shadowing whatever the parent
// holds for it. A subsequent Get returns not-found until the layer is
// committed and the erasure reaches the base store.
func (l *Layer) Erase(key []byte) {
	k := string(key)
	delete(l.writes, k)
	l.erased[k] = struct{}{}
}

// Dirty reports whether this layer has any buffered writes or erasures.
func (l *Layer) Dirty() bool {
	return len(l.writes) > 0 || len(l.erased) > 0
}

// Commit merges this layer's buffered writes and erasures into its parent:
// in-memory for a *Layer parent, or through to the underlying KvStore for a
// *BaseStore parent. The layer is left empty and reusable afterward.
func (l *Layer) Commit() error {
	switch p := l.parent.(type) {
	case *Layer:
		for k, v := range l.writes {
			p.writes[k] = v
			delete(p.erased, k)
		}
		for k := range l.erased {
			p.erased[k] = struct{}{}
			delete(p.writes, k)
		}
	case *BaseStore:
		for k, v := range l.writes {
			if err := p.db.Put([]byte(k), v); err != nil {
				return fmt.Errorf("cache: commit put: %w", err)
			}
		}
		for k := range l.erased {
			if err := p.db.Delete([]byte(k)); err != nil {
				return fmt.Errorf("cache: commit delete: %w", err)
			}
		}
	case nil:
		return fmt.Errorf("cache: cannot commit a layer with no parent")
	default:
		return fmt.Errorf("cache: unsupported commit target %T", p)
	}
	l.Rollback()
	return nil
}

// Rollback discards every buffered write and erasure without touching the
// parent.
func (l *Layer) Rollback() {
	l.writes = make(map[string][]byte)
	l.erased = make(map[string]struct{})
}

// PutJSON is a convenience for the many components that persist JSON-encoded
// values under a canonical key, following the same convention as the
// teacher's parameter store.
func PutJSON(l *Layer, key []byte, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	l.Put(key, encoded)
	return nil
}

// GetJSON decodes a JSON value previously stored with PutJSON. It reports
// found=false without error when the key is absent.
func GetJSON(l *Layer, key []byte, out any) (bool, error) {
	raw, found, err := l.Get(key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("cache: decode: %w", err)
	}
	return true, nil
}
