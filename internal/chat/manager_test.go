package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/imposterai/imposter/internal/ai"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Personality{}, &Chat{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedPersonality(t *testing.T, repo *Repo, rec PersonalityRecord) {
	t.Helper()
	if err := repo.SavePersonality(context.Background(), &rec); err != nil {
		t.Fatalf("seed personality %d: %v", rec.ID, err)
	}
}

type fakeProvider struct {
	reply string
	fail  bool

	calls int
	last  []ai.Message
}

func (p *fakeProvider) MakeRequest(ctx context.Context, messages []ai.Message) (ai.Message, error) {
	_ = ctx
	p.calls++
	p.last = append([]ai.Message(nil), messages...)
	if p.fail {
		return ai.Message{}, &ai.RequestError{Kind: ai.KindTransient, Err: errors.New("gateway down")}
	}
	return ai.Message{Role: ai.RoleAssistant, Content: p.reply}, nil
}

// spyStore wraps a Store to count and optionally fail writes.
type spyStore struct {
	Store
	saves    int
	failSave bool
}

func (s *spyStore) SaveChat(ctx context.Context, userID, personalityID uint64, messages []Message) error {
	s.saves++
	if s.failSave {
		return errors.New("disk full")
	}
	return s.Store.SaveChat(ctx, userID, personalityID, messages)
}

var travelAgent = PersonalityRecord{
	ID:           1,
	Name:         "Travel Agent",
	SystemPrompt: []string{"You are a travel agent.", "Be helpful."},
	IntroMessage: "Where would you like to go?",
	ImagePath:    "travel.png",
}

func newTestManager(t *testing.T, store Store, provider ai.Provider, historyLimit int) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), 1, store, provider, historyLimit, zerolog.Nop())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestCreateConversationSeedsIntro(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	m := newTestManager(t, repo, &fakeProvider{reply: "ok"}, 0)

	conv, err := m.CreateConversation(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	msgs := conv.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 seeded message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleAssistant || msgs[0].Content != travelAgent.IntroMessage {
		t.Fatalf("unexpected seed: %+v", msgs[0])
	}
}

func TestCreateConversationKeepsExistingLog(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	m := newTestManager(t, repo, &fakeProvider{reply: "ok"}, 0)

	log := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}
	conv, err := m.CreateConversation(context.Background(), 1, log)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if len(conv.Messages()) != 2 {
		t.Fatalf("seed injected into non-empty log: %+v", conv.Messages())
	}
}

func TestCreateConversationUnknownPersonality(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	m := newTestManager(t, repo, &fakeProvider{reply: "ok"}, 0)

	if _, err := m.CreateConversation(context.Background(), 42, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := m.Conversation(42); ok {
		t.Fatalf("conversation registered despite missing personality")
	}
}

func TestSendMessageSuccessPersists(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	prov := &fakeProvider{reply: "hello"}
	m := newTestManager(t, repo, prov, 0)

	reply, err := m.SendMessage(context.Background(), 1, "hi")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply.Content != "hello" || reply.ID != 1 {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	// Provider saw the synthesized system message first, the new user turn last.
	if prov.last[0].Role != ai.RoleSystem {
		t.Fatalf("expected leading system message, got %+v", prov.last[0])
	}
	if last := prov.last[len(prov.last)-1]; last.Role != ai.RoleUser || last.Content != "hi" {
		t.Fatalf("expected trailing user message, got %+v", last)
	}

	stored, err := repo.GetChat(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	// intro seed + user turn + assistant reply
	if len(stored) != 3 {
		t.Fatalf("expected 3 persisted messages, got %d: %+v", len(stored), stored)
	}
	if stored[1].Role != RoleUser || stored[1].Content != "hi" {
		t.Fatalf("unexpected persisted user msg: %+v", stored[1])
	}
	if stored[2].Role != RoleAssistant || stored[2].Content != "hello" {
		t.Fatalf("unexpected persisted assistant msg: %+v", stored[2])
	}

	conv, _ := m.Conversation(1)
	if len(conv.Messages()) != len(stored) {
		t.Fatalf("persisted log diverges from memory: %d vs %d", len(stored), len(conv.Messages()))
	}
}

func TestSendMessageFailureReturnsFallback(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	spy := &spyStore{Store: repo}
	m := newTestManager(t, spy, &fakeProvider{fail: true}, 0)

	reply, err := m.SendMessage(context.Background(), 1, "hi")
	if err != nil {
		t.Fatalf("gateway failure must not surface as error, got %v", err)
	}
	if reply.Content != FallbackReply || reply.ID != 1 {
		t.Fatalf("unexpected fallback reply: %+v", reply)
	}
	if spy.saves != 0 {
		t.Fatalf("expected zero persistence calls, got %d", spy.saves)
	}
	if _, err := repo.GetChat(context.Background(), 1, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no chat row, got %v", err)
	}

	// The user's own turn stays in memory for this request only.
	conv, _ := m.Conversation(1)
	if last := conv.Messages()[len(conv.Messages())-1]; last.Role != RoleUser || last.Content != "hi" {
		t.Fatalf("expected in-memory user turn, got %+v", last)
	}
}

func TestSendMessageStorageFailureIsObservable(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	spy := &spyStore{Store: repo, failSave: true}
	m := newTestManager(t, spy, &fakeProvider{reply: "hello"}, 0)

	reply, err := m.SendMessage(context.Background(), 1, "hi")
	if err == nil {
		t.Fatalf("expected persistence error to surface")
	}
	var persistErr *ReplyNotPersistedError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected ReplyNotPersistedError, got %v", err)
	}
	if reply.Content != "hello" || reply.ID != 1 {
		t.Fatalf("reply should still carry the assistant content, got %+v", reply)
	}
}

func TestSendMessageStorageFailureWithEmptyReply(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	// An empty assistant reply must not be mistaken for a failed turn.
	spy := &spyStore{Store: repo, failSave: true}
	m := newTestManager(t, spy, &fakeProvider{reply: ""}, 0)

	reply, err := m.SendMessage(context.Background(), 1, "hi")
	var persistErr *ReplyNotPersistedError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected ReplyNotPersistedError, got %v", err)
	}
	if reply.ID != 1 || reply.Content != "" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestRehydrationIsIdempotent(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	first := newTestManager(t, repo, &fakeProvider{reply: "hello"}, 0)
	if _, err := first.SendMessage(context.Background(), 1, "hi"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	m2 := newTestManager(t, repo, &fakeProvider{reply: "x"}, 0)
	m3 := newTestManager(t, repo, &fakeProvider{reply: "y"}, 0)

	c2, ok := m2.Conversation(1)
	if !ok {
		t.Fatalf("conversation not rehydrated at construction")
	}
	c3, _ := m3.Conversation(1)

	e2 := c2.ExportSavedMessages()
	e3 := c3.ExportSavedMessages()
	if len(e2) != len(e3) {
		t.Fatalf("divergent rehydration: %d vs %d", len(e2), len(e3))
	}
	for i := range e2 {
		if e2[i] != e3[i] {
			t.Fatalf("divergent message %d: %+v vs %+v", i, e2[i], e3[i])
		}
	}
}

func TestUpdateSystemPromptUnknownConversation(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	m := newTestManager(t, repo, &fakeProvider{reply: "ok"}, 0)

	m.UpdateSystemPrompt(99, "extra instruction")

	if _, ok := m.Conversation(99); ok {
		t.Fatalf("no-op update materialized a conversation")
	}
}

func TestUpdateSystemPromptShapesNextTurn(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	prov := &fakeProvider{reply: "ok"}
	m := newTestManager(t, repo, prov, 0)

	if _, err := m.RetrieveConversation(context.Background(), 1); err != nil {
		t.Fatalf("retrieve conversation: %v", err)
	}
	m.UpdateSystemPrompt(1, "Answer in French.")

	if _, err := m.SendMessage(context.Background(), 1, "hi"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	sys := prov.last[0]
	if sys.Role != ai.RoleSystem || !strings.HasSuffix(sys.Content, "Answer in French.") {
		t.Fatalf("appended prompt missing from export: %+v", sys)
	}

	// The append never reaches the personality store.
	rec, err := repo.GetPersonality(context.Background(), 1)
	if err != nil {
		t.Fatalf("get personality: %v", err)
	}
	if len(rec.SystemPrompt) != len(travelAgent.SystemPrompt) {
		t.Fatalf("prompt append leaked into storage: %+v", rec.SystemPrompt)
	}
}

func TestSendMessageHistoryLimit(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	// Seed a long stored history.
	var seeded []Message
	for i := 0; i < 6; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		seeded = append(seeded, Message{Role: role, Content: fmt.Sprintf("seed %d", i)})
	}
	if err := repo.SaveChat(context.Background(), 1, 1, seeded); err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	window := 3
	prov := &fakeProvider{reply: "ok"}
	m := newTestManager(t, repo, prov, window)

	if _, err := m.SendMessage(context.Background(), 1, "new"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	// system message + window trailing log entries
	if len(prov.last) != window+1 {
		t.Fatalf("expected %d gateway messages, got %d", window+1, len(prov.last))
	}
	if prov.last[0].Role != ai.RoleSystem {
		t.Fatalf("system message must survive the window: %+v", prov.last[0])
	}
	if last := prov.last[len(prov.last)-1]; last.Content != "new" {
		t.Fatalf("newest user turn missing: %+v", last)
	}

	// The persisted log is never truncated.
	stored, err := repo.GetChat(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if len(stored) != len(seeded)+2 {
		t.Fatalf("expected %d persisted messages, got %d", len(seeded)+2, len(stored))
	}
}

func TestSendMessageLazilyCreatesConversation(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	m := newTestManager(t, repo, &fakeProvider{reply: "ok"}, 0)
	if _, ok := m.Conversation(1); ok {
		t.Fatalf("conversation conjured before first contact")
	}

	if _, err := m.SendMessage(context.Background(), 1, "hi"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if _, ok := m.Conversation(1); !ok {
		t.Fatalf("conversation not created on first message")
	}
}

func TestNewManagerStartsEmpty(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	seedPersonality(t, repo, travelAgent)

	m := newTestManager(t, repo, &fakeProvider{reply: "ok"}, 0)

	list, err := m.ChatList(context.Background())
	if err != nil {
		t.Fatalf("chat list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty chat list, got %+v", list)
	}
}
