package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data []byte
	info Info
}

// Memory is an in-process Store
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func (m *Memory) Driver() string { return "memory" }

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	if strings.TrimSpace(key) == "" {
		return Info{}, fmt.Errorf("empty key")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read blob %s: %w", key, err)
	}

	info := Info{Key: key, Size: int64(len(data)), ContentType: contentType, LastModified: time.Now().UTC()}

	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, info: info}
	m.mu.Unlock()
	return info, nil
}

func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, Info, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, Info{}, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var infos []Info
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, obj.info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
