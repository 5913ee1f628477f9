package sessioncache

import (
	"testing"
	"time"

	"github.com/crewdeck/crewdeck/internal/domain"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func cachedMsg(id string, seq int64, text string, at time.Time) domain.ChatMessage {
	return domain.ChatMessage{ID: id, Seq: seq, Kind: "text", Role: "assistant", Text: text, CreatedAt: at}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := openTestCache(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	err := c.ReplaceSnapshot("s1", []domain.ChatMessage{
		cachedMsg("b", 2, "second", base.Add(time.Second)),
		cachedMsg("a", 1, "first", base),
	})
	if err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}

	got, err := c.Messages("s1")
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("messages = %+v, want [a b] in order", got)
	}
	if got[0].Text != "first" || !got[0].CreatedAt.Equal(base) {
		t.Errorf("message a = %+v", got[0])
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	c := openTestCache(t)
	base := time.Now().UTC().Truncate(time.Millisecond)

	if err := c.UpsertMessage("s1", cachedMsg("a", 1, "draft", base)); err != nil {
		t.Fatal(err)
	}
	if err := c.UpsertMessage("s1", cachedMsg("a", 1, "final", base)); err != nil {
		t.Fatal(err)
	}

	got, err := c.Messages("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "final" {
		t.Errorf("messages = %+v, want single updated row", got)
	}
}

func TestSnapshotReplacesPriorTranscript(t *testing.T) {
	c := openTestCache(t)
	base := time.Now().UTC()

	_ = c.UpsertMessage("s1", cachedMsg("old", 1, "stale", base))
	if err := c.ReplaceSnapshot("s1", []domain.ChatMessage{cachedMsg("new", 1, "fresh", base)}); err != nil {
		t.Fatal(err)
	}

	got, _ := c.Messages("s1")
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("messages = %+v, want only the snapshot content", got)
	}
}

func TestSessionsNewestFirstAndPrune(t *testing.T) {
	c := openTestCache(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_ = c.UpsertMessage("s-old", cachedMsg("a", 1, "x", base))
	_ = c.UpsertMessage("s-new", cachedMsg("b", 1, "y", base.Add(time.Hour)))

	ids, err := c.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "s-new" || ids[1] != "s-old" {
		t.Errorf("sessions = %v, want [s-new s-old]", ids)
	}

	if err := c.Prune([]string{"s-new"}); err != nil {
		t.Fatal(err)
	}
	ids, _ = c.Sessions()
	if len(ids) != 1 || ids[0] != "s-new" {
		t.Errorf("sessions after prune = %v, want [s-new]", ids)
	}
}

func TestMessagesIgnoreEmptyIDs(t *testing.T) {
	c := openTestCache(t)
	if err := c.UpsertMessage("s1", domain.ChatMessage{Seq: 1}); err != nil {
		t.Fatal(err)
	}
	got, _ := c.Messages("s1")
	if len(got) != 0 {
		t.Errorf("messages = %+v, want empty", got)
	}
}
