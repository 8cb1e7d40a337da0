// Package testutil holds fakes shared by package tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rowjay/monthly-archiver/internal/storage"
)

type memObject struct {
	data     []byte
	modified time.Time
	metadata map[string]string
}

// MemStore is an in-memory storage.Storage with injectable failures.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]memObject

	ListErr  map[string]error // by prefix
	StatErr  map[string]error // by key
	GetErr   map[string]error // by key
	PutErr   error
	Puts     int
	StatCall int
}

var _ storage.Storage = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		objects: map[string]memObject{},
		ListErr: map[string]error{},
		StatErr: map[string]error{},
		GetErr:  map[string]error{},
	}
}

// Add stores an object with a last-modified time and optional metadata.
func (m *MemStore) Add(key string, data []byte, modified time.Time, metadata map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, modified: modified, metadata: metadata}
}

// Bytes returns the stored content of key.
func (m *MemStore) Bytes(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

func (m *MemStore) Metadata(key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key].metadata
}

func (m *MemStore) Location() string { return "mem://test" }

func (m *MemStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ListErr[prefix]; err != nil {
		return nil, err
	}
	infos := []storage.ObjectInfo{}
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), Modified: obj.modified})
		}
	}
	// Reverse order so callers cannot rely on the store sorting.
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key > infos[j].Key })
	return infos, nil
}

func (m *MemStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatCall++
	if err := m.StatErr[key]; err != nil {
		return storage.ObjectInfo{}, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, os.ErrNotExist
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), Modified: obj.modified, Metadata: obj.metadata}, nil
}

func (m *MemStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.GetErr[key]; err != nil {
		return nil, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemStore) Put(_ context.Context, key string, reader io.Reader, _ int64, metadata map[string]string) error {
	m.mu.Lock()
	m.Puts++
	putErr := m.PutErr
	m.mu.Unlock()
	if putErr != nil {
		return putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.Add(key, data, time.Now(), metadata)
	return nil
}

func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return os.ErrNotExist
	}
	delete(m.objects, key)
	return nil
}
