package policyrepo

import (
	"bytes"
	"testing"
)

func TestCommitAndHistory(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.Commit("comp-1", "leave-policy.txt", []byte("21 days"), "Priya Sharma", "Attach leave policy")
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	if first.Hash == "" || first.Author != "Priya Sharma" {
		t.Fatalf("unexpected version: %+v", first)
	}

	second, err := svc.Commit("comp-1", "leave-policy.txt", []byte("25 days"), "Priya Sharma", "Update leave policy")
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}
	if second.Hash == first.Hash {
		t.Fatal("expected distinct revisions")
	}

	history, err := svc.History("comp-1", "leave-policy.txt", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Hash != second.Hash {
		t.Fatalf("history not newest first: %+v", history)
	}
}

func TestHistoryScopedToFile(t *testing.T) {
	svc := New(t.TempDir())

	if _, err := svc.Commit("comp-1", "leave-policy.txt", []byte("21 days"), "Priya", "Attach leave policy"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, err := svc.Commit("comp-1", "wfh-policy.txt", []byte("2 days a week"), "Priya", "Attach wfh policy"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	history, err := svc.History("comp-1", "wfh-policy.txt", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := New(t.TempDir())
	for _, content := range []string{"v1", "v2", "v3"} {
		if _, err := svc.Commit("comp-1", "policy.txt", []byte(content), "Priya", "Update"); err != nil {
			t.Fatalf("commit failed: %v", err)
		}
	}
	history, err := svc.History("comp-1", "policy.txt", 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
}

func TestHistoryWithoutRepo(t *testing.T) {
	svc := New(t.TempDir())
	history, err := svc.History("comp-none", "policy.txt", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}

func TestGetVersion(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.Commit("comp-1", "policy.txt", []byte("original"), "Priya", "Attach policy")
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, err := svc.Commit("comp-1", "policy.txt", []byte("revised"), "Priya", "Revise policy"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	content, err := svc.GetVersion("comp-1", "policy.txt", first.Hash)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if !bytes.Equal(content, []byte("original")) {
		t.Fatalf("content = %q, want original", content)
	}
}

func TestCompaniesIsolated(t *testing.T) {
	svc := New(t.TempDir())

	if _, err := svc.Commit("comp-1", "policy.txt", []byte("ours"), "Priya", "Attach"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	history, err := svc.History("comp-2", "policy.txt", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatal("company repos must be isolated")
	}
}
