package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"hrsupport/internal/gateway"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Message is a purely local chat entry, never mutated after creation and
// never deleted.
type Message struct {
	Role      string
	Text      string
	Actions   []string
	Timestamp time.Time
}

// ChatLog is the append-only conversation transcript. Messages append in
// local submission order: the user's message is recorded before the remote
// call goes out, and the assistant reply whenever it returns. Replies that
// land out of order relative to later user messages stay where they land;
// no reordering is attempted.
type ChatLog struct {
	mu       sync.Mutex
	gw       gateway.Gateway
	messages []Message
}

func NewChatLog(gw gateway.Gateway) *ChatLog {
	return &ChatLog{gw: gw}
}

// Send appends the user message, asks the assistant for a reply, and
// appends the reply. The user message stays in the log even when the
// remote call fails.
func (l *ChatLog) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, gateway.Validationf("message must not be empty")
	}

	l.append(Message{Role: ChatRoleUser, Text: text, Timestamp: time.Now()})

	reply, err := l.gw.ChatSend(ctx, text)
	if err != nil {
		return Message{}, err
	}

	assistant := Message{
		Role:      ChatRoleAssistant,
		Text:      reply.Reply,
		Actions:   reply.Actions,
		Timestamp: time.Now(),
	}
	l.append(assistant)
	return assistant, nil
}

func (l *ChatLog) append(msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// Messages returns a copy of the transcript in insertion order.
func (l *ChatLog) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}
