package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemorySink_PutAndGet(t *testing.T) {
	sink := NewMemorySink()

	meta := map[string]string{"session_id": "abc123def456"}
	if err := sink.Put(context.Background(), "user/abc.csv", []byte("data"), "text/csv", meta); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	obj, ok := sink.Get("user/abc.csv")
	if !ok {
		t.Fatal("object not found after Put")
	}
	if string(obj.Body) != "data" {
		t.Errorf("Body = %q, want %q", obj.Body, "data")
	}
	if obj.ContentType != "text/csv" {
		t.Errorf("ContentType = %q, want %q", obj.ContentType, "text/csv")
	}
	if obj.Metadata["session_id"] != "abc123def456" {
		t.Errorf("Metadata = %v, missing session_id", obj.Metadata)
	}
	if sink.Len() != 1 {
		t.Errorf("Len() = %d, want 1", sink.Len())
	}
}

func TestMemorySink_FailWith(t *testing.T) {
	sink := NewMemorySink()
	boom := errors.New("bucket unavailable")
	sink.FailWith(boom)

	err := sink.Put(context.Background(), "k", nil, "text/csv", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Put() error = %v, want %v", err, boom)
	}
	if sink.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failed put", sink.Len())
	}

	sink.FailWith(nil)
	if err := sink.Put(context.Background(), "k", nil, "text/csv", nil); err != nil {
		t.Fatalf("Put() after heal error = %v", err)
	}
}

func TestMemorySink_CopiesBody(t *testing.T) {
	sink := NewMemorySink()
	body := []byte("original")
	sink.Put(context.Background(), "k", body, "text/csv", nil)

	body[0] = 'X'
	obj, _ := sink.Get("k")
	if string(obj.Body) != "original" {
		t.Errorf("stored body mutated by caller: %q", obj.Body)
	}
}
