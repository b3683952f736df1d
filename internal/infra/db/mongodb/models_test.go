package mongodb

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

func TestChatDocMessageFields(t *testing.T) {
	conf := 0.9
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := chatDoc{
		ID:        "c1",
		UserEmail: "a@b.c",
		Title:     "Image analysis",
		CreatedAt: now,
		Messages: []chats.Message{
			{ID: "m1", Role: chats.RoleUser, Type: media.KindImage, Content: "http://x/y.png", CreatedAt: now},
			{ID: "m2", Role: chats.RoleAssistant, Type: media.KindImage, Content: "r", Label: ai.LabelAI, Confidence: &conf, Reason: "r", CreatedAt: now},
		},
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["_id"] != "c1" || m["user_email"] != "a@b.c" {
		t.Fatalf("top-level fields: %v", m)
	}
	msgs, ok := m["messages"].(bson.A)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages: %T %v", m["messages"], m["messages"])
	}
	first := msgs[0].(bson.M)
	if _, has := first["confidence"]; has {
		t.Fatalf("user message must omit confidence")
	}
	second := msgs[1].(bson.M)
	if second["role"] != "aidentify" || second["label"] != "AI" {
		t.Fatalf("assistant message: %v", second)
	}

	var back chatDoc
	if err := bson.Unmarshal(raw, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	c := back.toDomain()
	if c.ID != "c1" || len(c.Messages) != 2 || *c.Messages[1].Confidence != 0.9 {
		t.Fatalf("toDomain: %+v", c)
	}
}
