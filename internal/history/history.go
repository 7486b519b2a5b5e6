// Package history keeps the most recent finished conversations.
package history

import (
	"encoding/json"
	"sync"
	"time"

	"echoflow/internal/chat"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Key is the kv key holding the JSON array of items.
const Key = "echo-flow-history"

// MaxItems bounds the log.
const MaxItems = 20

// Item is one archived conversation. Old entries only carry Text.
type Item struct {
	ID        string         `json:"id" yaml:"id"`
	Timestamp int64          `json:"timestamp" yaml:"timestamp"`
	Mode      chat.Mode      `json:"mode" yaml:"mode"`
	Messages  []chat.Message `json:"messages" yaml:"messages"`
	Text      string         `json:"text,omitempty" yaml:"text,omitempty"`
}

// Conversation returns the turns to replay. A present message list wins;
// otherwise a legacy text becomes a single assistant turn.
func (it Item) Conversation() []chat.Message {
	if it.Messages != nil {
		return append([]chat.Message{}, it.Messages...)
	}
	if it.Text != "" {
		return []chat.Message{{Role: chat.RoleAssistant, Content: it.Text}}
	}
	return []chat.Message{}
}

// Time is the item timestamp as a time.Time.
func (it Item) Time() time.Time {
	return time.UnixMilli(it.Timestamp)
}

// Backend is the key-value persistence the log is written to.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Store is the bounded, newest-first history log.
type Store struct {
	mu      sync.Mutex
	items   []Item
	backend Backend
	logger  *log.Logger
	now     func() time.Time
}

// Open loads the log. Unreadable items are skipped; an unreadable log starts
// empty.
func Open(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{backend: backend, logger: logger, now: time.Now}
	s.items = s.load()
	return s
}

func (s *Store) load() []Item {
	raw, ok, err := s.backend.Get(Key)
	if err != nil {
		s.logger.Warn("history read failed", "err", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("history log unreadable, starting empty", "err", err)
		return nil
	}
	items := make([]Item, 0, len(entries))
	for i, e := range entries {
		var it Item
		if err := json.Unmarshal(e, &it); err != nil {
			s.logger.Warn("skipping history item", "index", i, "err", err)
			continue
		}
		items = append(items, it)
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	return items
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Record prepends a new item for msgs and persists the log. The in-memory log
// is updated even when persisting fails.
func (s *Store) Record(msgs []chat.Message, mode chat.Mode) (Item, error) {
	it := Item{
		ID:        newID(),
		Timestamp: s.now().UnixMilli(),
		Mode:      mode,
		Messages:  append([]chat.Message{}, msgs...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Item, 0, MaxItems)
	next = append(next, it)
	next = append(next, s.items...)
	if len(next) > MaxItems {
		next = next[:MaxItems]
	}
	s.items = next
	return it, s.persist()
}

// Clear empties the log.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return s.persist()
}

// Select returns the item with id. The log is not modified.
func (s *Store) Select(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id {
			return cloneItem(it), true
		}
	}
	return Item{}, false
}

// List returns the items newest first.
func (s *Store) List() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = cloneItem(it)
	}
	return out
}

// Len is the number of stored items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func cloneItem(it Item) Item {
	if it.Messages != nil {
		it.Messages = append([]chat.Message{}, it.Messages...)
	}
	return it
}

func (s *Store) persist() error {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "encode history")
	}
	return errors.Wrap(s.backend.Set(Key, string(b)), "save history")
}
