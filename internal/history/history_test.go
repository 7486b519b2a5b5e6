package history

import (
	"fmt"
	"testing"
	"time"

	"echoflow/internal/chat"
	"echoflow/internal/kv"
	"echoflow/internal/logging"
)

func openKV(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Open(":memory:")
	if err != nil {
		t.Fatalf("kv.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func conv(text string) []chat.Message {
	return []chat.Message{
		{Role: chat.RoleUser, Content: text},
		{Role: chat.RoleAssistant, Content: "re: " + text},
	}
}

func TestRecordKeepsTwentyNewestFirst(t *testing.T) {
	db := openKV(t)
	s := Open(db, logging.Discard())
	for i := 0; i < 25; i++ {
		if _, err := s.Record(conv(fmt.Sprintf("n%d", i)), chat.ModeClean); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	items := s.List()
	if len(items) != MaxItems {
		t.Fatalf("len = %d, want %d", len(items), MaxItems)
	}
	if items[0].Messages[0].Content != "n24" || items[19].Messages[0].Content != "n5" {
		t.Fatalf("unexpected order: first %q last %q", items[0].Messages[0].Content, items[19].Messages[0].Content)
	}

	reloaded := Open(db, logging.Discard()).List()
	if len(reloaded) != MaxItems || reloaded[0].ID != items[0].ID {
		t.Fatal("log should persist synchronously")
	}
}

func TestRecordIDsUniqueAndTimestamped(t *testing.T) {
	s := Open(openKV(t), logging.Discard())
	fixed := time.UnixMilli(1700000000000)
	s.now = func() time.Time { return fixed }
	a, _ := s.Record(conv("a"), chat.ModeIdea)
	b, _ := s.Record(conv("b"), chat.ModeIdea)
	if a.ID == b.ID || a.ID == "" {
		t.Fatalf("ids should be unique: %q %q", a.ID, b.ID)
	}
	if a.Timestamp != 1700000000000 || a.Mode != chat.ModeIdea {
		t.Fatalf("unexpected item %+v", a)
	}
}

func TestRecordCopiesMessages(t *testing.T) {
	s := Open(openKV(t), logging.Discard())
	msgs := conv("x")
	it, _ := s.Record(msgs, chat.ModeAsk)
	msgs[0].Content = "mutated"
	got, ok := s.Select(it.ID)
	if !ok || got.Messages[0].Content != "x" {
		t.Fatal("stored turns must not alias the caller's slice")
	}
	got.Messages[0].Content = "mutated again"
	again, _ := s.Select(it.ID)
	if again.Messages[0].Content != "x" {
		t.Fatal("Select must return a copy")
	}
}

func TestLegacyItemReadAsAssistantTurn(t *testing.T) {
	db := openKV(t)
	_ = db.Set(Key, `[
		{"id":"1700000000001","timestamp":1700000000001,"mode":"meeting","text":"Decisions: ship it"},
		{"id":"x","timestamp":1,"mode":"clean","messages":[{"role":"user","content":"hi"}]}
	]`)
	s := Open(db, logging.Discard())
	it, ok := s.Select("1700000000001")
	if !ok {
		t.Fatal("legacy item not found")
	}
	got := it.Conversation()
	if len(got) != 1 || got[0].Role != chat.RoleAssistant || got[0].Content != "Decisions: ship it" {
		t.Fatalf("Conversation() = %+v", got)
	}
	it2, _ := s.Select("x")
	if c := it2.Conversation(); len(c) != 1 || c[0].Role != chat.RoleUser {
		t.Fatalf("structured Conversation() = %+v", c)
	}
}

func TestConversationPrefersMessages(t *testing.T) {
	it := Item{Messages: []chat.Message{}, Text: "legacy"}
	if got := it.Conversation(); len(got) != 0 {
		t.Fatalf("present message list should win: %+v", got)
	}
	if got := (Item{}).Conversation(); got == nil || len(got) != 0 {
		t.Fatalf("empty item should yield empty conversation, got %#v", got)
	}
}

func TestCorruptLogAndItems(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"not json", `{{{`, 0},
		{"not an array", `{"id":"1"}`, 0},
		{"one bad item", `[{"id":"a","timestamp":1,"mode":"clean","messages":[]},{"id":5},{"id":"b","timestamp":2,"mode":"ask","messages":[]}]`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openKV(t)
			_ = db.Set(Key, tt.raw)
			if got := Open(db, logging.Discard()).Len(); got != tt.want {
				t.Fatalf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClear(t *testing.T) {
	db := openKV(t)
	s := Open(db, logging.Discard())
	_, _ = s.Record(conv("a"), chat.ModeClean)
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if v, _, _ := db.Get(Key); v != "[]" {
		t.Fatalf("stored log = %q, want []", v)
	}
	if s.Len() != 0 {
		t.Fatal("Clear() should empty the log")
	}
}
