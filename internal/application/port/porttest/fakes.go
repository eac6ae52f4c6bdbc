package porttest

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
)

// Files is an in-memory port.FileStorage
type Files struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewFiles creates an empty blob store
func NewFiles() *Files {
	return &Files{blobs: make(map[string][]byte)}
}

func (f *Files) Save(ctx context.Context, path string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = append([]byte(nil), content...)
	return nil
}

func (f *Files) Read(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", path, fs.ErrNotExist)
	}
	return append([]byte(nil), b...), nil
}

func (f *Files) Exists(ctx context.Context, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[path]
	return ok
}

func (f *Files) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, path)
	return nil
}

func (f *Files) GetFullPath(path string) string { return "mem://" + path }

// Paths lists the stored paths
func (f *Files) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.blobs))
	for p := range f.blobs {
		out = append(out, p)
	}
	return out
}

// Message is one recorded message
type Message struct {
	To      string
	Content string
}

// Sender records messages. Err, when set, fails every send.
type Sender struct {
	mu       sync.Mutex
	Err      error
	Messages []Message
}

func (s *Sender) SendMessage(ctx context.Context, to, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Messages = append(s.Messages, Message{To: to, Content: content})
	return nil
}

// Logger discards everything
type Logger struct{}

func (Logger) Info(msg string, keysAndValues ...interface{})  {}
func (Logger) Error(msg string, keysAndValues ...interface{}) {}

var (
	_ port.FileStorage   = (*Files)(nil)
	_ port.MessageSender = (*Sender)(nil)
)
