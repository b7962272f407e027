package kv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const cookieMedium = "cookie"

// SameSite mirrors the cookie attribute of the same name.
type SameSite string

const (
	SameSiteStrict SameSite = "Strict"
	SameSiteLax    SameSite = "Lax"
)

// CookieAttributes apply to every cookie written through a CookieJar.
type CookieAttributes struct {
	Path     string
	SameSite SameSite
	Secure   bool
	MaxAge   time.Duration
}

// cookieEntry is the persisted form of one cookie.
type cookieEntry struct {
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	SameSite SameSite  `json:"sameSite"`
	Secure   bool      `json:"secure"`
	Expires  time.Time `json:"expires"`
}

// CookieJar is the cookie medium: a small file-backed store whose entries
// carry cookie attributes and expire on their own. Expired entries read as
// absent and are dropped on the next read.
type CookieJar struct {
	mu    sync.Mutex
	path  string
	attrs CookieAttributes
	now   func() time.Time
	log   zerolog.Logger
}

// NewCookieJar opens (creating if needed) the jar file at path. An
// unreadable or corrupt jar file is reset to empty rather than reported.
func NewCookieJar(path string, attrs CookieAttributes, log zerolog.Logger) (*CookieJar, error) {
	if attrs.Path == "" {
		attrs.Path = "/"
	}
	if attrs.SameSite == "" {
		attrs.SameSite = SameSiteLax
	}
	if attrs.MaxAge <= 0 {
		attrs.MaxAge = 7 * 24 * time.Hour
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	j := &CookieJar{path: path, attrs: attrs, now: time.Now, log: log.With().Str("medium", cookieMedium).Logger()}
	return j, nil
}

// Name identifies the medium in logs and metrics.
func (j *CookieJar) Name() string { return cookieMedium }

// Get returns the cookie value for key, treating expired cookies as absent.
func (j *CookieJar) Get(key string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	jar := j.read()
	e, ok := jar[key]
	if !ok {
		return "", false
	}
	if j.now().After(e.Expires) {
		delete(jar, key)
		j.write(jar)
		return "", false
	}
	if !usable(e.Value) {
		corruptionRepairsTotal.WithLabelValues(cookieMedium).Inc()
		e.Value = Placeholder
		jar[key] = e
		j.write(jar)
		return "", false
	}
	return e.Value, true
}

// Set writes the cookie with the jar's attributes and a fresh expiry.
func (j *CookieJar) Set(key, valueJSON string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	jar := j.read()
	jar[key] = cookieEntry{
		Value:    valueJSON,
		Path:     j.attrs.Path,
		SameSite: j.attrs.SameSite,
		Secure:   j.attrs.Secure,
		Expires:  j.now().Add(j.attrs.MaxAge),
	}
	if !j.write(jar) {
		writeFailuresTotal.WithLabelValues(cookieMedium).Inc()
		return false
	}
	return true
}

// Remove deletes the cookie.
func (j *CookieJar) Remove(key string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	jar := j.read()
	if _, ok := jar[key]; !ok {
		return
	}
	delete(jar, key)
	j.write(jar)
}

// read loads the jar file, healing an unreadable file to an empty jar.
func (j *CookieJar) read() map[string]cookieEntry {
	jar := make(map[string]cookieEntry)
	raw, err := os.ReadFile(j.path)
	if err != nil {
		return jar
	}
	if err := json.Unmarshal(raw, &jar); err != nil {
		corruptionRepairsTotal.WithLabelValues(cookieMedium).Inc()
		j.log.Warn().Err(err).Msg("resetting corrupted cookie jar")
		j.write(map[string]cookieEntry{})
		return make(map[string]cookieEntry)
	}
	return jar
}

func (j *CookieJar) write(jar map[string]cookieEntry) bool {
	raw, err := json.Marshal(jar)
	if err != nil {
		return false
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		j.log.Warn().Err(err).Msg("cookie jar write failed")
		return false
	}
	if err := os.Rename(tmp, j.path); err != nil {
		j.log.Warn().Err(err).Msg("cookie jar rename failed")
		return false
	}
	return true
}
