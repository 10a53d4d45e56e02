package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_RecordAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	in := Entry{
		PromptSHA256: HashPrompt("hello"),
		Budget:       100,
		TokensBefore: 400,
		TokensAfter:  98,
		Iterations:   2,
		HardCut:      true,
	}
	got, err := s.Record(ctx, in)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := uuid.Parse(got.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", got.ID, err)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID != got.ID || e.PromptSHA256 != in.PromptSHA256 || e.Budget != 100 ||
		e.TokensBefore != 400 || e.TokensAfter != 98 || e.Iterations != 2 || !e.HardCut {
		t.Errorf("round trip mismatch: %+v", e)
	}
	if !e.CreatedAt.Equal(got.CreatedAt) {
		t.Errorf("CreatedAt: want %v, got %v", got.CreatedAt, e.CreatedAt)
	}
}

func Test_Store_RecentNewestFirstAndLimited(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := range 6 {
		if _, err := s.Record(ctx, Entry{PromptSHA256: HashPrompt("p"), Budget: i}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := s.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("want 4 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if want := 5 - i; e.Budget != want {
			t.Errorf("entry %d: want budget %d, got %d", i, want, e.Budget)
		}
	}
}

func Test_Store_RecentEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	entries, err := s.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want 0 entries, got %d", len(entries))
	}
}

func Test_Store_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "trims.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s1.Record(ctx, Entry{PromptSHA256: HashPrompt("x"), Budget: 7}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close() //nolint:errcheck

	entries, err := s2.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Budget != 7 {
		t.Errorf("want one entry with budget 7, got %+v", entries)
	}
}

func Test_Store_Ping(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
	if s.Name() != "trimlog" {
		t.Errorf("name: got %q", s.Name())
	}
}

func Test_HashPrompt(t *testing.T) {
	t.Parallel()
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashPrompt("abc"); got != want {
		t.Errorf("HashPrompt(abc) = %s, want %s", got, want)
	}
}
