package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"
)

// Memory keeps objects in process memory. It backs local development and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

var _ Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func (m *Memory) Upload(_ context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, size+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", errors.New("object size mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = memoryObject{data: data, contentType: contentType}
	return objectName, nil
}

func (m *Memory) GetURL(_ context.Context, objectName string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[objectName]
	m.mu.RUnlock()
	if !ok {
		return "", errors.New("object not found")
	}
	q := url.Values{"expires": {time.Now().Add(expiry).UTC().Format(time.RFC3339)}}
	return "memory://" + objectName + "?" + q.Encode(), nil
}

// Object returns the stored bytes and content type.
func (m *Memory) Object(objectName string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectName]
	return obj.data, obj.contentType, ok
}

func (m *Memory) Remove(_ context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	return nil
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
