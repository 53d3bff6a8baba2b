package engine

import (
	"context"
	"testing"

	"hrsupport/internal/gateway"
)

func TestCacheReplaceAllIsFullReplace(t *testing.T) {
	cache := NewCache(func(r gateway.Request) string { return r.ID })
	cache.Put(pendingRequest("req-1"))
	cache.Put(pendingRequest("req-2"))

	cache.ReplaceAll([]gateway.Request{pendingRequest("req-3")})

	if cache.Len() != 1 {
		t.Fatalf("len = %d, want 1", cache.Len())
	}
	if _, ok := cache.Get("req-1"); ok {
		t.Fatal("req-1 survived a full replace")
	}
	if _, ok := cache.Get("req-3"); !ok {
		t.Fatal("req-3 missing after replace")
	}
}

func TestCacheReplaceAllSkipsLockedIDs(t *testing.T) {
	cache := NewCache(func(r gateway.Request) string { return r.ID })
	optimistic := pendingRequest("req-1")
	optimistic.Status = gateway.StatusApproved
	cache.Put(optimistic)

	if !cache.TryLock("req-1") {
		t.Fatal("TryLock failed on fresh id")
	}

	// A poll tick lands while the mutation is in flight: the server still
	// reports pending, but the optimistic value must survive.
	cache.ReplaceAll([]gateway.Request{pendingRequest("req-1"), pendingRequest("req-2")})

	rec, _ := cache.Get("req-1")
	if rec.Status != gateway.StatusApproved {
		t.Fatalf("locked record overwritten: status = %q", rec.Status)
	}
	if _, ok := cache.Get("req-2"); !ok {
		t.Fatal("unlocked id req-2 not refreshed")
	}

	cache.Unlock("req-1")
	cache.ReplaceAll([]gateway.Request{pendingRequest("req-1")})
	rec, _ = cache.Get("req-1")
	if rec.Status != gateway.StatusPending {
		t.Fatalf("after settle, refresh should win: status = %q", rec.Status)
	}
}

func TestCacheReplaceAllDropsLockedAbsentID(t *testing.T) {
	cache := NewCache(func(n gateway.Notification) string { return n.ID })
	if !cache.TryLock("ntf-9") {
		t.Fatal("TryLock failed")
	}
	cache.ReplaceAll([]gateway.Notification{{ID: "ntf-1"}})
	if _, ok := cache.Get("ntf-9"); ok {
		t.Fatal("locked id with no cached record should not appear")
	}
}

func TestCacheApplyAbsent(t *testing.T) {
	cache := NewCache(func(r gateway.Request) string { return r.ID })
	if cache.Apply("nope", func(r gateway.Request) gateway.Request { return r }) {
		t.Fatal("Apply on absent id should return false")
	}
}

func TestChatAppendsUserBeforeSend(t *testing.T) {
	sendErr := &gateway.NetworkError{Err: context.DeadlineExceeded}
	gw := &fakeGateway{
		chatSendFn: func(context.Context, string) (gateway.ChatReply, error) {
			return gateway.ChatReply{}, sendErr
		},
	}
	chat := NewChatLog(gw)

	if _, err := chat.Send(context.Background(), "I need leave"); err == nil {
		t.Fatal("expected send error")
	}
	msgs := chat.Messages()
	if len(msgs) != 1 || msgs[0].Role != ChatRoleUser {
		t.Fatalf("transcript = %+v, want the user message preserved", msgs)
	}
}

func TestChatAppendOrder(t *testing.T) {
	gw := &fakeGateway{
		chatSendFn: func(_ context.Context, msg string) (gateway.ChatReply, error) {
			return gateway.ChatReply{Reply: "re: " + msg, Actions: []string{"noted"}}, nil
		},
	}
	chat := NewChatLog(gw)

	for _, text := range []string{"first", "second"} {
		if _, err := chat.Send(context.Background(), text); err != nil {
			t.Fatalf("Send(%q) error = %v", text, err)
		}
	}

	msgs := chat.Messages()
	want := []string{"first", "re: first", "second", "re: second"}
	if len(msgs) != len(want) {
		t.Fatalf("transcript length = %d, want %d", len(msgs), len(want))
	}
	for i, text := range want {
		if msgs[i].Text != text {
			t.Fatalf("msgs[%d].Text = %q, want %q", i, msgs[i].Text, text)
		}
	}
	if msgs[1].Actions[0] != "noted" {
		t.Fatalf("assistant actions not carried: %+v", msgs[1])
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	chat := NewChatLog(&fakeGateway{})
	if _, err := chat.Send(context.Background(), "   "); err == nil {
		t.Fatal("expected validation error")
	}
	if len(chat.Messages()) != 0 {
		t.Fatal("empty message should not be appended")
	}
}

func TestSnapshotCopies(t *testing.T) {
	cache := NewCache(func(r gateway.Request) string { return r.ID })
	cache.Put(pendingRequest("req-1"))
	snap := cache.Snapshot()
	snap[0].Status = gateway.StatusRejected
	rec, _ := cache.Get("req-1")
	if rec.Status != gateway.StatusPending {
		t.Fatal("snapshot aliases cache storage")
	}
}
