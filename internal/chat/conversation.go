package chat

import "strings"

// Message roles kept in a conversation's log. The system role never appears
// in the log itself; it only exists in the exported projection.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of a conversation, in the shape it is persisted.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the in-memory thread between one user and one personality.
// Its id equals the personality id. The message log holds user/assistant
// entries in chronological order; system prompt fragments live in a separate
// list and are synthesized into a single leading system message on export.
type Conversation struct {
	ID    uint64
	Name  string
	Image string

	messageLog    []Message
	systemPrompts []string
}

func NewConversation(id uint64, name string, messages []Message, systemPrompts []string, image string) *Conversation {
	return &Conversation{
		ID:            id,
		Name:          name,
		Image:         image,
		messageLog:    messages,
		systemPrompts: systemPrompts,
	}
}

// AddUserMessage appends a user entry to the message log.
func (c *Conversation) AddUserMessage(content string) {
	c.messageLog = append(c.messageLog, Message{Role: RoleUser, Content: content})
}

// AddAssistantMessage appends an assistant entry to the message log.
func (c *Conversation) AddAssistantMessage(content string) {
	c.messageLog = append(c.messageLog, Message{Role: RoleAssistant, Content: content})
}

// AddSystemMessage appends a prompt fragment to the system prompt list.
func (c *Conversation) AddSystemMessage(prompt string) {
	c.systemPrompts = append(c.systemPrompts, prompt)
}

// Messages returns the raw user/assistant log, which is what gets persisted.
func (c *Conversation) Messages() []Message {
	return c.messageLog
}

// SystemPrompts returns the prompt fragment list.
func (c *Conversation) SystemPrompts() []string {
	return c.systemPrompts
}

// ExportSavedMessages projects the conversation into the sequence sent to the
// model: at most one leading system message (prompt fragments joined by
// single spaces) followed by the full log in order. The result is rebuilt on
// every call; mutating it does not touch the conversation.
func (c *Conversation) ExportSavedMessages() []Message {
	out := make([]Message, 0, len(c.messageLog)+1)
	if len(c.systemPrompts) > 0 {
		out = append(out, Message{
			Role:    RoleSystem,
			Content: strings.Join(c.systemPrompts, " "),
		})
	}
	return append(out, c.messageLog...)
}
