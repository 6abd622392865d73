package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// Storage is the durable session-local store a cart is saved to after every mutation.
type Storage interface {
	Load(ctx context.Context, session string) ([]Line, error)
	Save(ctx context.Context, session string, lines []Line) error
}

type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, session string) ([]Line, error) {
	m.mu.Lock()
	raw, ok := m.data[session]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", session, err)
	}
	return lines, nil
}

func (m *MemoryStorage) Save(_ context.Context, session string, lines []Line) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[session] = raw
	m.mu.Unlock()
	return nil
}

var safeSession = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// FileStorage keeps one JSON file per session under Dir.
type FileStorage struct {
	Dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStorage{Dir: dir}, nil
}

func (f *FileStorage) path(session string) (string, error) {
	if !safeSession.MatchString(session) {
		return "", fmt.Errorf("invalid cart session %q", session)
	}
	return filepath.Join(f.Dir, session+".json"), nil
}

func (f *FileStorage) Load(_ context.Context, session string) ([]Line, error) {
	p, err := f.path(session)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", session, err)
	}
	return lines, nil
}

// Save writes to a temp file and renames it over the old snapshot.
func (f *FileStorage) Save(_ context.Context, session string, lines []Line) error {
	p, err := f.path(session)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, session+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}
