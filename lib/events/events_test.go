package events

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/cellardb/cellar/lib/engine/ephemeral"
	"github.com/cellardb/cellar/lib/store/pstore"
)

// newTestRecorder creates a recorder over a fresh in-memory store with a
// controllable clock.
func newTestRecorder(t *testing.T) *recorderImpl {
	t.Helper()
	s, err := pstore.New(pstore.Config{
		Path:       filepath.Join(t.TempDir(), "store"),
		Domains:    []string{"events"},
		FastDomain: "events",
		Engine:     ephemeral.New,
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := s.SetUp(); err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(s.Close)
	return NewRecorder(s, "events").(*recorderImpl)
}

var keyPattern = regexp.MustCompile(`^\d{10}\.[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// TestRecordAndFetch tests the basic record and fetch round trip and the
// storage key format.
func TestRecordAndFetch(t *testing.T) {
	r := newTestRecorder(t)

	payload := []byte(`{"pid": 4223}`)
	key, err := r.Record(payload)
	if err != nil {
		t.Fatalf("Failed to record event: %v", err)
	}
	if !keyPattern.MatchString(key) {
		t.Errorf("Expected a time-ordered uuid key, got %q", key)
	}

	stored, found, err := r.Fetch(key)
	if err != nil {
		t.Fatalf("Failed to fetch event: %v", err)
	}
	if !found {
		t.Fatalf("Expected the recorded event to exist")
	}
	if !bytes.Equal(stored, payload) {
		t.Errorf("Expected payload %q, got %q", payload, stored)
	}

	// Fetching an unknown key is absent, not an error.
	if _, found, err := r.Fetch("0000000000.unknown"); err != nil || found {
		t.Errorf("Expected unknown key to be absent without error, got found=%v err=%v", found, err)
	}
}

// TestRecordBatch tests that batched events all land and get distinct keys.
func TestRecordBatch(t *testing.T) {
	r := newTestRecorder(t)

	payloads := [][]byte{
		[]byte("one"),
		[]byte("two"),
		[]byte("three"),
	}
	keys, err := r.RecordBatch(payloads)
	if err != nil {
		t.Fatalf("Failed to record batch: %v", err)
	}
	if len(keys) != len(payloads) {
		t.Fatalf("Expected %d keys, got %d", len(payloads), len(keys))
	}

	seen := make(map[string]struct{}, len(keys))
	for i, key := range keys {
		if _, dup := seen[key]; dup {
			t.Errorf("Expected distinct keys, %q repeated", key)
		}
		seen[key] = struct{}{}

		stored, found, err := r.Fetch(key)
		if err != nil || !found {
			t.Fatalf("Failed to fetch event %q: found=%v err=%v", key, found, err)
		}
		if !bytes.Equal(stored, payloads[i]) {
			t.Errorf("Expected payload %q for key %q, got %q", payloads[i], key, stored)
		}
	}

	// An empty batch records nothing.
	keys, err = r.RecordBatch(nil)
	if err != nil {
		t.Errorf("Expected empty batch to succeed, got %v", err)
	}
	if keys != nil {
		t.Errorf("Expected no keys for an empty batch, got %v", keys)
	}
}

// TestListWindow tests the time window semantics of List.
func TestListWindow(t *testing.T) {
	r := newTestRecorder(t)

	current := int64(1700000000)
	r.now = func() int64 { return current }

	var keys []string
	for i := 0; i < 3; i++ {
		key, err := r.Record([]byte(fmt.Sprintf("event %d", i)))
		if err != nil {
			t.Fatalf("Failed to record event %d: %v", i, err)
		}
		keys = append(keys, key)
		current += 10
	}

	testCases := []struct {
		name     string
		since    int64
		until    int64
		expected []string
	}{
		{"Unbounded", 0, 0, keys},
		{"Lower bound between events", 1700000005, 0, keys[1:]},
		{"Both bounds", 1700000005, 1700000015, keys[1:2]},
		{"Upper bound is exclusive", 1700000000, 1700000010, keys[:1]},
		{"Lower bound is inclusive", 1700000010, 0, keys[1:]},
		{"Window after all events", 1700000021, 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.List(tc.since, tc.until)
			if err != nil {
				t.Fatalf("Failed to list events: %v", err)
			}
			if len(got) != len(tc.expected) {
				t.Fatalf("Expected %d keys, got %v", len(tc.expected), got)
			}
			for i, key := range tc.expected {
				if got[i] != key {
					t.Errorf("Expected key %q at position %d, got %q", key, i, got[i])
				}
			}
		})
	}
}

// TestExpire tests the expiration sweep and its exclusive cutoff.
func TestExpire(t *testing.T) {
	r := newTestRecorder(t)

	current := int64(1700000000)
	r.now = func() int64 { return current }

	early, err := r.Record([]byte("early"))
	if err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	current += 10
	late, err := r.Record([]byte("late"))
	if err != nil {
		t.Fatalf("Failed to record: %v", err)
	}

	// A cutoff of zero is a no-op.
	if err := r.Expire(0); err != nil {
		t.Fatalf("Failed to expire with zero cutoff: %v", err)
	}
	if keys, _ := r.List(0, 0); len(keys) != 2 {
		t.Fatalf("Expected both events to survive a zero cutoff, got %v", keys)
	}

	// Events recorded exactly at the cutoff survive.
	if err := r.Expire(1700000010); err != nil {
		t.Fatalf("Failed to expire: %v", err)
	}
	keys, err := r.List(0, 0)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(keys) != 1 || keys[0] != late {
		t.Errorf("Expected only the late event %q, got %v", late, keys)
	}
	if _, found, _ := r.Fetch(early); found {
		t.Errorf("Expected the early event to be gone")
	}

	// A cutoff past everything clears the domain.
	if err := r.Expire(1800000000); err != nil {
		t.Fatalf("Failed to expire: %v", err)
	}
	if keys, _ := r.List(0, 0); len(keys) != 0 {
		t.Errorf("Expected no events after the final sweep, got %v", keys)
	}
}

// TestDisabledSignal tests that the package level disable switch drops
// writes while reads keep working.
func TestDisabledSignal(t *testing.T) {
	r := newTestRecorder(t)

	key, err := r.Record([]byte("before"))
	if err != nil {
		t.Fatalf("Failed to record: %v", err)
	}

	Disable()
	t.Cleanup(Enable)

	if !IsDisabled() {
		t.Fatalf("Expected recording to be disabled")
	}
	if dropped, err := r.Record([]byte("dropped")); err != nil || dropped != "" {
		t.Errorf("Expected a silent drop, got key=%q err=%v", dropped, err)
	}
	if dropped, err := r.RecordBatch([][]byte{[]byte("dropped")}); err != nil || dropped != nil {
		t.Errorf("Expected a silent batch drop, got keys=%v err=%v", dropped, err)
	}

	// Reads keep working while disabled.
	if _, found, err := r.Fetch(key); err != nil || !found {
		t.Errorf("Expected reads to work while disabled, got found=%v err=%v", found, err)
	}
	if keys, err := r.List(0, 0); err != nil || len(keys) != 1 {
		t.Errorf("Expected exactly the first event, got %v (err=%v)", keys, err)
	}

	Enable()
	if IsDisabled() {
		t.Fatalf("Expected recording to be enabled again")
	}
	if _, err := r.Record([]byte("after")); err != nil {
		t.Errorf("Failed to record after enabling: %v", err)
	}
	if keys, _ := r.List(0, 0); len(keys) != 2 {
		t.Errorf("Expected two events after enabling, got %v", keys)
	}
}
