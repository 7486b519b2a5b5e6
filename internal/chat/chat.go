// Package chat holds the conversation model shared by the pipeline, the
// history log and the exporters.
package chat

import "fmt"

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn. Values are copied, never shared, so a stored turn
// cannot change after it is created.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Conversation is an append-only list of turns in turn order.
type Conversation struct {
	msgs []Message
}

// NewConversation copies msgs into a new conversation.
func NewConversation(msgs ...Message) Conversation {
	c := Conversation{}
	if len(msgs) > 0 {
		c.msgs = append([]Message(nil), msgs...)
	}
	return c
}

// Append returns the conversation with m added at the end. The receiver is
// left untouched.
func (c Conversation) Append(m Message) Conversation {
	next := make([]Message, len(c.msgs), len(c.msgs)+1)
	copy(next, c.msgs)
	return Conversation{msgs: append(next, m)}
}

// Messages returns a copy of the turns.
func (c Conversation) Messages() []Message {
	if len(c.msgs) == 0 {
		return []Message{}
	}
	return append([]Message(nil), c.msgs...)
}

// Len is the number of turns.
func (c Conversation) Len() int { return len(c.msgs) }

// Empty reports whether there are no turns.
func (c Conversation) Empty() bool { return len(c.msgs) == 0 }

// Last returns the final turn, if any.
func (c Conversation) Last() (Message, bool) {
	if len(c.msgs) == 0 {
		return Message{}, false
	}
	return c.msgs[len(c.msgs)-1], true
}

// Mode selects the persona used to rewrite a transcript.
type Mode string

const (
	ModeClean   Mode = "clean"
	ModeMeeting Mode = "meeting"
	ModeIdea    Mode = "idea"
	ModeAsk     Mode = "ask"
	ModeCustom  Mode = "custom"
)

// DefaultCustomPrompt is used until the user saves their own.
const DefaultCustomPrompt = "You are a helpful assistant."

type modeInfo struct {
	label  string
	prompt string
}

var modes = map[Mode]modeInfo{
	ModeClean: {
		label:  "Clean Up",
		prompt: "You are a copy editor. Clean up the transcript, remove filler words, and format as Markdown. Return ONLY the cleaned text.",
	},
	ModeMeeting: {
		label:  "Meeting Notes",
		prompt: "You are a meeting secretary. Summarize the input. Extract Main Topics, Decisions, and Action Items. Format in Markdown.",
	},
	ModeIdea: {
		label:  "Spark Idea",
		prompt: "You are a creative partner. Structure the user's thoughts into a concept. Suggest improvements and next steps.",
	},
	ModeAsk: {
		label:  "Ask AI",
		prompt: "You are a knowledgeable assistant. Answer the question comprehensively and provide context in Markdown.",
	},
	ModeCustom: {
		label: "Custom",
	},
}

// Modes lists every mode in menu order.
func Modes() []Mode {
	return []Mode{ModeClean, ModeMeeting, ModeIdea, ModeAsk, ModeCustom}
}

// ParseMode validates a stored or user-supplied mode id.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := modes[m]; !ok {
		return "", fmt.Errorf("unknown mode %q (allowed: clean, meeting, idea, ask, custom)", s)
	}
	return m, nil
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	_, ok := modes[m]
	return ok
}

// Label is the human-readable name.
func (m Mode) Label() string {
	if info, ok := modes[m]; ok {
		return info.label
	}
	return string(m)
}

// Next cycles to the following mode in menu order.
func (m Mode) Next() Mode {
	all := Modes()
	for i, x := range all {
		if x == m {
			return all[(i+1)%len(all)]
		}
	}
	return ModeClean
}

// SystemPrompt resolves the prompt for m. Custom mode uses the user's text,
// falling back to DefaultCustomPrompt when it is blank.
func (m Mode) SystemPrompt(custom string) string {
	if m == ModeCustom {
		if custom == "" {
			return DefaultCustomPrompt
		}
		return custom
	}
	if info, ok := modes[m]; ok {
		return info.prompt
	}
	return modes[ModeClean].prompt
}
