package chat

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/imposterai/imposter/internal/ai"
)

// FallbackReply is returned to the user whenever the model gateway fails,
// regardless of why.
const FallbackReply = "... Imposter does not feel like responding at the current moment ... please try again later!"

// Store is what the manager needs from durable storage. *Repo implements it.
type Store interface {
	GetPersonality(ctx context.Context, id uint64) (*PersonalityRecord, error)
	GetChat(ctx context.Context, userID, personalityID uint64) ([]Message, error)
	SaveChat(ctx context.Context, userID, personalityID uint64, messages []Message) error
	ListChats(ctx context.Context, userID uint64) ([]ChatListEntry, error)
}

// Reply is the payload handed back to the transport layer for one turn.
type Reply struct {
	Content string `json:"content"`
	ID      uint64 `json:"id"`
}

// ReplyNotPersistedError reports a turn whose reply came back but whose log
// write failed. The reply accompanying it is still valid.
type ReplyNotPersistedError struct {
	Err error
}

func (e *ReplyNotPersistedError) Error() string {
	return "reply not persisted: " + e.Err.Error()
}

func (e *ReplyNotPersistedError) Unwrap() error { return e.Err }

// Manager orchestrates one user's conversations for the lifetime of a single
// request. It is rebuilt and rehydrated from storage every time, so durable
// state is the only thing shared between requests and no locking is needed.
type Manager struct {
	userID       uint64
	store        Store
	provider     ai.Provider
	historyLimit int

	conversations map[uint64]*Conversation
	log           zerolog.Logger
}

// NewManager builds a manager for userID and rehydrates every conversation
// the user has a chat row for. historyLimit caps how many trailing log
// messages are sent to the gateway per turn; zero means no cap.
func NewManager(ctx context.Context, userID uint64, store Store, provider ai.Provider, historyLimit int, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		userID:        userID,
		store:         store,
		provider:      provider,
		historyLimit:  historyLimit,
		conversations: make(map[uint64]*Conversation),
		log:           log.With().Str("component", "chat_manager").Uint64("user_id", userID).Logger(),
	}

	entries, err := store.ListChats(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "rehydrate chat list")
	}
	if len(entries) == 0 {
		m.log.Debug().Msg("no recorded conversations")
		return m, nil
	}
	for _, e := range entries {
		if _, err := m.RetrieveConversation(ctx, e.PersonalityID); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Conversation looks up an already-materialized conversation.
func (m *Manager) Conversation(id uint64) (*Conversation, bool) {
	c, ok := m.conversations[id]
	return c, ok
}

// ChatList returns the user's saved (personality id, name) pairs.
func (m *Manager) ChatList(ctx context.Context) ([]ChatListEntry, error) {
	return m.store.ListChats(ctx, m.userID)
}

// RetrieveConversation materializes the conversation for id from its chat
// row, or from the personality template alone when no row exists, and
// registers it, replacing any prior entry.
func (m *Manager) RetrieveConversation(ctx context.Context, id uint64) (*Conversation, error) {
	msgs, err := m.store.GetChat(ctx, m.userID, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		m.log.Debug().Uint64("conversation_id", id).Msg("no stored chat, starting fresh")
		msgs = nil
	}
	return m.CreateConversation(ctx, id, msgs)
}

// CreateConversation builds a conversation for a personality from the given
// log. An empty log is seeded with the personality's intro message as a
// synthetic assistant turn; that seed is not persisted until the user
// actually replies. An unknown personality id fails with ErrNotFound.
func (m *Manager) CreateConversation(ctx context.Context, id uint64, messages []Message) (*Conversation, error) {
	p, err := m.store.GetPersonality(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		messages = []Message{{Role: RoleAssistant, Content: p.IntroMessage}}
	}

	conv := NewConversation(id, p.Name, messages, p.SystemPrompt, p.ImagePath)
	m.conversations[id] = conv
	return conv, nil
}

// SendMessage runs one turn: append the user text, call the gateway with the
// exported sequence, and on success append the reply and persist the whole
// log. Gateway failures never surface as errors; they become the fixed
// fallback payload and nothing is persisted. A persistence failure after a
// successful reply is returned alongside the reply as a
// *ReplyNotPersistedError so callers can observe it.
func (m *Manager) SendMessage(ctx context.Context, id uint64, text string) (Reply, error) {
	conv, ok := m.conversations[id]
	if !ok {
		var err error
		conv, err = m.CreateConversation(ctx, id, nil)
		if err != nil {
			return Reply{}, err
		}
	}

	conv.AddUserMessage(text)

	resp, err := m.provider.MakeRequest(ctx, m.exportForRequest(conv))
	if err != nil {
		kind := ai.KindUnknown
		var reqErr *ai.RequestError
		if errors.As(err, &reqErr) {
			kind = reqErr.Kind
		}
		m.log.Warn().
			Uint64("conversation_id", id).
			Str("kind", string(kind)).
			Err(err).
			Msg("model request failed, returning fallback")
		return Reply{Content: FallbackReply, ID: id}, nil
	}

	conv.AddAssistantMessage(resp.Content)

	if err := m.StoreConversation(ctx, id); err != nil {
		// The reply is still usable; hand both back.
		return Reply{Content: resp.Content, ID: id}, &ReplyNotPersistedError{Err: err}
	}
	return Reply{Content: resp.Content, ID: id}, nil
}

// UpdateSystemPrompt appends a prompt fragment to an existing conversation,
// in memory only. Unknown conversation ids are a logged no-op.
func (m *Manager) UpdateSystemPrompt(id uint64, prompt string) {
	conv, ok := m.conversations[id]
	if !ok {
		m.log.Error().Uint64("conversation_id", id).Msg("conversation does not exist, cannot update prompt")
		return
	}
	conv.AddSystemMessage(prompt)
}

// StoreConversation overwrites the chat row with the current in-memory log.
func (m *Manager) StoreConversation(ctx context.Context, id uint64) error {
	conv, ok := m.conversations[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "conversation %d", id)
	}
	return m.store.SaveChat(ctx, m.userID, id, conv.Messages())
}

// exportForRequest converts the exported sequence into gateway messages,
// applying the history window. The synthesized system message never counts
// against the window.
func (m *Manager) exportForRequest(conv *Conversation) []ai.Message {
	exported := conv.ExportSavedMessages()

	if m.historyLimit > 0 {
		head := 0
		if len(exported) > 0 && exported[0].Role == RoleSystem {
			head = 1
		}
		if len(exported)-head > m.historyLimit {
			trimmed := make([]Message, 0, head+m.historyLimit)
			trimmed = append(trimmed, exported[:head]...)
			trimmed = append(trimmed, exported[len(exported)-m.historyLimit:]...)
			exported = trimmed
		}
	}

	out := make([]ai.Message, 0, len(exported))
	for _, msg := range exported {
		out = append(out, ai.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}
