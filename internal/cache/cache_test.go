package cache

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsalearn/sessionkit/internal/kv"
	"github.com/dsalearn/sessionkit/internal/types"
)

// failStore rejects writes and/or fails removals while still recording the
// calls, so fan-out behavior is observable.
type failStore struct {
	*kv.MemStore
	rejectSet bool
	removed   []string
}

func (f *failStore) Set(key, valueJSON string) bool {
	if f.rejectSet {
		return false
	}
	return f.MemStore.Set(key, valueJSON)
}

func (f *failStore) Remove(key string) {
	f.removed = append(f.removed, key)
	f.MemStore.Remove(key)
}

func record() *types.SessionRecord {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &types.SessionRecord{
		UserID:                "u-123",
		Email:                 "student@dsa.com",
		Username:              "student",
		FullName:              "Sample Student",
		LearningPace:          types.PaceMedium,
		DailyTimeLimitMinutes: 120,
		DifficultyPreferences: []string{"easy", "medium"},
		AdaptiveDifficulty:    true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func newCache(t *testing.T) (*SessionCache, *kv.MemStore, *kv.MemStore, *kv.MemStore) {
	t.Helper()
	durable, session, cookies := kv.NewMemStore(), kv.NewMemStore(), kv.NewMemStore()
	c := New(durable, session, cookies, 0, zerolog.Nop())
	return c, durable, session, cookies
}

func TestStoreLoadRoundTrip(t *testing.T) {
	t.Parallel()
	c, _, session, cookies := newCache(t)
	rec := record()

	require.True(t, c.Store(rec))

	got, age, ok := c.Load()
	require.True(t, ok)
	assert.True(t, rec.Equal(got), "loaded record differs: %+v vs %+v", rec, got)
	assert.Less(t, age, time.Minute)

	// Fan-out: session marker and both cookies present.
	_, ok = session.Get(KeySessionMarker)
	assert.True(t, ok, "session marker missing")
	id, ok := cookies.Get(CookieUserID)
	require.True(t, ok)
	assert.Equal(t, `"u-123"`, id)
	state, ok := cookies.Get(CookieAuthState)
	require.True(t, ok)
	assert.Equal(t, `"`+AuthStateValue+`"`, state)
}

func TestLoadPastTTL(t *testing.T) {
	t.Parallel()
	c, _, _, _ := newCache(t)
	base := time.Now()
	c.WithClock(func() time.Time { return base })
	require.True(t, c.Store(record()))

	c.WithClock(func() time.Time { return base.Add(DefaultTTL + time.Hour) })
	_, _, ok := c.Load()
	assert.False(t, ok, "record past TTL must read as absent")
}

func TestLoadInvalidRecord(t *testing.T) {
	t.Parallel()
	c, durable, _, _ := newCache(t)
	// A structurally valid envelope whose record lacks an email must never
	// be published.
	durable.Set(KeySession, `{"record":{"userId":"u-1"},"storedAt":"2099-01-01T00:00:00Z"}`)
	_, _, ok := c.Load()
	assert.False(t, ok)
}

func TestLoadCorruptEnvelopeHeals(t *testing.T) {
	t.Parallel()
	c, durable, _, _ := newCache(t)
	// Valid JSON, wrong shape: decodes into the envelope with a null
	// record, reads as absent.
	durable.Set(KeySession, `{"record":"not-an-object"}`)
	_, _, ok := c.Load()
	assert.False(t, ok)
	raw, present := durable.Get(KeySession)
	assert.False(t, present, "healed entry must read as absent, got %q", raw)
}

func TestStoreSurvivesSingleMediumFailure(t *testing.T) {
	t.Parallel()
	durable := &failStore{MemStore: kv.NewMemStore(), rejectSet: true}
	cookies := kv.NewMemStore()
	c := New(durable, kv.NewMemStore(), cookies, 0, zerolog.Nop())

	assert.True(t, c.Store(record()), "one surviving medium is enough")
	_, ok := cookies.Get(CookieUserID)
	assert.True(t, ok, "cookie fan-out must still happen")
}

func TestStoreFailsWhenNoSurvivingMedium(t *testing.T) {
	t.Parallel()
	durable := &failStore{MemStore: kv.NewMemStore(), rejectSet: true}
	cookies := &failStore{MemStore: kv.NewMemStore(), rejectSet: true}
	c := New(durable, kv.NewMemStore(), cookies, 0, zerolog.Nop())
	assert.False(t, c.Store(record()))
}

func TestClearRemovesEverythingIndependently(t *testing.T) {
	t.Parallel()
	durable := &failStore{MemStore: kv.NewMemStore()}
	session := &failStore{MemStore: kv.NewMemStore()}
	cookies := &failStore{MemStore: kv.NewMemStore()}
	c := New(durable, session, cookies, 0, zerolog.Nop())
	require.True(t, c.Store(record()))

	c.Clear()

	_, _, ok := c.Load()
	assert.False(t, ok)
	assert.Equal(t, []string{KeySession}, durable.removed)
	assert.Equal(t, []string{KeySessionMarker}, session.removed)
	assert.Equal(t, []string{CookieUserID, CookieAuthState}, cookies.removed)
}

func TestClearKeepsRememberedEmail(t *testing.T) {
	t.Parallel()
	c, _, _, _ := newCache(t)
	require.True(t, c.Store(record()))
	c.RememberEmail("student@dsa.com")

	c.Clear()

	email, ok := c.RememberedEmail()
	require.True(t, ok)
	assert.Equal(t, "student@dsa.com", email)

	c.ClearRememberedEmail()
	_, ok = c.RememberedEmail()
	assert.False(t, ok)
}

func TestOfflineMarker(t *testing.T) {
	t.Parallel()
	c, _, _, _ := newCache(t)
	assert.False(t, c.Offline())
	c.MarkOffline()
	assert.True(t, c.Offline())
	c.ClearOffline()
	assert.False(t, c.Offline())
}
