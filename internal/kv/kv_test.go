package kv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "kv.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected absent for missing key")
	}
	if !s.Set("k", `{"a":1}`) {
		t.Fatal("set failed")
	}
	got, ok := s.Get("k")
	if !ok || got != `{"a":1}` {
		t.Fatalf("get = %q, %v", got, ok)
	}
	s.Remove("k")
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected absent after remove")
	}
	s.Remove("k") // idempotent
}

func TestSQLiteCorruptionSelfHeals(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	if !s.Set("session", `{"userId":"u1"}`) {
		t.Fatal("set failed")
	}
	// Corrupt the row underneath the adapter.
	if _, err := s.db.Exec(`UPDATE kv SET value = ? WHERE key = ?`, `{"userId":`, "session"); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	if _, ok := s.Get("session"); ok {
		t.Fatal("corrupted entry must read as absent")
	}

	// The adapter must have replaced the bytes with the placeholder, not
	// left the corruption to recur.
	var raw string
	if err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, "session").Scan(&raw); err != nil {
		t.Fatalf("read healed row: %v", err)
	}
	if raw != Placeholder {
		t.Fatalf("healed value = %q, want placeholder", raw)
	}
	// Placeholder itself still reads as absent, without another repair.
	if _, ok := s.Get("session"); ok {
		t.Fatal("placeholder must read as absent")
	}
}

func TestSQLiteQuota(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	s.maxValue = 16
	if s.Set("big", `"`+strings.Repeat("x", 64)+`"`) {
		t.Fatal("oversized write must fail")
	}
	if _, ok := s.Get("big"); ok {
		t.Fatal("rejected write must not be readable")
	}
}

func TestMemStore(t *testing.T) {
	t.Parallel()
	m := NewMemStore()
	if !m.Set("k", `"v"`) {
		t.Fatal("set failed")
	}
	if got, ok := m.Get("k"); !ok || got != `"v"` {
		t.Fatalf("get = %q, %v", got, ok)
	}
	m.Disable()
	if m.Set("k2", `"v"`) {
		t.Fatal("set on disabled medium must fail")
	}
	// Existing entries stay readable; only writes fail.
	if _, ok := m.Get("k"); !ok {
		t.Fatal("existing entry should survive disable")
	}
	m.Remove("k")
	if _, ok := m.Get("k"); ok {
		t.Fatal("expected absent after remove")
	}
}

func TestCookieJarExpiry(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cookies.json")
	j, err := NewCookieJar(path, CookieAttributes{MaxAge: time.Hour, SameSite: SameSiteStrict}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	now := time.Now()
	j.now = func() time.Time { return now }

	if !j.Set("dsa_user_id", `"u1"`) {
		t.Fatal("set failed")
	}
	if got, ok := j.Get("dsa_user_id"); !ok || got != `"u1"` {
		t.Fatalf("get = %q, %v", got, ok)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := j.Get("dsa_user_id"); ok {
		t.Fatal("expired cookie must read as absent")
	}
	// Expired entry is dropped from the jar file.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read jar: %v", err)
	}
	if strings.Contains(string(raw), "dsa_user_id") {
		t.Fatalf("expired cookie still on disk: %s", raw)
	}
}

func TestCookieJarCorruptFileResets(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0o600); err != nil {
		t.Fatalf("seed corrupt jar: %v", err)
	}
	j, err := NewCookieJar(path, CookieAttributes{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	if _, ok := j.Get("anything"); ok {
		t.Fatal("corrupt jar must read as absent")
	}
	if !j.Set("k", `"v"`) {
		t.Fatal("set after reset failed")
	}
	if got, ok := j.Get("k"); !ok || got != `"v"` {
		t.Fatalf("get after reset = %q, %v", got, ok)
	}
}

func TestCookieJarAttributes(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cookies.json")
	j, err := NewCookieJar(path, CookieAttributes{Secure: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	if j.attrs.Path != "/" || j.attrs.SameSite != SameSiteLax || j.attrs.MaxAge != 7*24*time.Hour {
		t.Fatalf("defaults not applied: %+v", j.attrs)
	}
	if !j.Set("k", `"v"`) {
		t.Fatal("set failed")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read jar: %v", err)
	}
	for _, want := range []string{`"path":"/"`, `"sameSite":"Lax"`, `"secure":true`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("jar file missing %s: %s", want, raw)
		}
	}
}
