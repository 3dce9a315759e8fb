package ai

import (
	"context"
	"testing"
)

type nullProvider struct{}

func (nullProvider) MakeRequest(ctx context.Context, messages []Message) (Message, error) {
	_ = ctx
	_ = messages
	return Message{Role: RoleAssistant, Content: "ok"}, nil
}

func TestRegistryResolvesByName(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Fake", func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		_ = model
		return nullProvider{}, nil
	})

	p, err := reg.Get(context.Background(), "  fake ", "")
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	if _, ok := p.(nullProvider); !ok {
		t.Fatalf("unexpected provider type %T", p)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get(context.Background(), "missing", ""); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestKindForStatus(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorKind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{400, KindInvalidRequest},
		{404, KindInvalidRequest},
		{408, KindTransient},
		{429, KindTransient},
		{500, KindTransient},
		{503, KindTransient},
		{302, KindUnknown},
	}
	for _, c := range cases {
		if got := kindForStatus(c.status); got != c.want {
			t.Errorf("status %d: got %s, want %s", c.status, got, c.want)
		}
	}
}
