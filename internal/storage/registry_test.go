package storage

import (
	"strings"
	"testing"
)

func TestSaveAndGet(t *testing.T) {
	s := NewMemoryStore(0)

	info, err := s.Save("app.log", strings.NewReader("line one\nline two\n"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if info.ID == "" || info.Name != "app.log" || info.Size != 18 {
		t.Errorf("info = %+v", info)
	}
	if info.Status != "uploaded" {
		t.Errorf("status = %s", info.Status)
	}

	got, err := s.Get(info.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != info.ID {
		t.Errorf("Get returned %+v", got)
	}

	data, err := s.GetData(info.ID)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if string(data) != "line one\nline two\n" {
		t.Errorf("data = %q", data)
	}

	if _, err := s.Get("missing"); err == nil {
		t.Error("Get on unknown id should fail")
	}
}

func TestSaveEnforcesSizeLimit(t *testing.T) {
	s := NewMemoryStore(10)

	if _, err := s.Save("big.log", strings.NewReader(strings.Repeat("x", 11))); err == nil {
		t.Error("expected size limit error")
	}
	if _, err := s.Save("ok.log", strings.NewReader(strings.Repeat("x", 10))); err != nil {
		t.Errorf("input at the limit should be accepted: %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := NewMemoryStore(0)

	for _, name := range []string{"a.log", "b.log", "c.log"} {
		if _, err := s.Save(name, strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].UploadedAt.After(list[i-1].UploadedAt) {
			t.Error("list not ordered newest first")
		}
	}
}

func TestDelete(t *testing.T) {
	s := NewMemoryStore(0)

	info, err := s.Save("a.log", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(info.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(info.ID); err == nil {
		t.Error("deleted input still retrievable")
	}
	if err := s.Delete(info.ID); err == nil {
		t.Error("double delete should fail")
	}
}

func TestChunkedUpload(t *testing.T) {
	s := NewMemoryStore(0)

	for i, part := range []string{"hello ", "chunked ", "world"} {
		if err := s.SaveChunk("up-1", i, strings.NewReader(part)); err != nil {
			t.Fatalf("SaveChunk %d: %v", i, err)
		}
	}

	info, err := s.CompleteChunkedUpload("up-1", "assembled.log", 3)
	if err != nil {
		t.Fatalf("CompleteChunkedUpload: %v", err)
	}
	data, err := s.GetData(info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello chunked world" {
		t.Errorf("assembled = %q", data)
	}

	// The staging area is consumed on completion.
	if _, err := s.CompleteChunkedUpload("up-1", "again.log", 3); err == nil {
		t.Error("second completion should fail")
	}
}

func TestChunkedUploadMissingChunk(t *testing.T) {
	s := NewMemoryStore(0)

	if err := s.SaveChunk("up-2", 0, strings.NewReader("only")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CompleteChunkedUpload("up-2", "partial.log", 2); err == nil {
		t.Error("completion with a missing chunk should fail")
	}
	if _, err := s.CompleteChunkedUpload("up-unknown", "x.log", 1); err == nil {
		t.Error("completion of unknown upload should fail")
	}
}
