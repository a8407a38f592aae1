package credential

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mailnotify"
)

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	pair, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, pair.IsEmpty(), "new store should be empty")

	require.NoError(t, store.Save(ctx, &Pair{AccessToken: "A1", RefreshToken: "R1"}))
	pair, err = store.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, "A1", pair.AccessToken)
	assert.EqualValues(t, "R1", pair.RefreshToken)

	require.NoError(t, store.Save(ctx, &Pair{AccessToken: "A2", RefreshToken: "R2"}))
	pair, err = store.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, "A2", pair.AccessToken)
	assert.EqualValues(t, "R2", pair.RefreshToken, "old refresh token must be replaced")

	assert.ErrorIs(t, store.Save(ctx, &Pair{RefreshToken: "R3"}), ErrInvalidPair)

	require.NoError(t, store.Clear(ctx))
	pair, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, pair.IsEmpty())
	require.NoError(t, store.Clear(ctx), "clearing an empty store is a no-op")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)

	require.NoError(t, store.Save(context.Background(), &Pair{AccessToken: "A", RefreshToken: "R"}))
	value, ok := store.Get(mailnotify.AccessTokenKey)
	assert.True(t, ok)
	assert.EqualValues(t, "A", value)
}

func TestMemoryStore_ConcurrentSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	pairs := []*Pair{{AccessToken: "A1", RefreshToken: "R1"}, {AccessToken: "A2", RefreshToken: "R2"}}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(p *Pair) {
			defer wg.Done()
			_ = store.Save(ctx, p)
		}(pairs[i%2])
		go func() {
			defer wg.Done()
			pair, _ := store.Load(ctx)
			if pair.AccessToken == "" {
				return
			}
			assert.EqualValues(t, "R"+pair.AccessToken[1:], pair.RefreshToken, "pair must never interleave")
		}()
	}
	wg.Wait()
}

func TestFileStore(t *testing.T) {
	URL := "file://" + filepath.Join(t.TempDir(), "credentials.json")
	testStore(t, NewFileStore(URL))
}

func TestFileStore_Encrypted(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "credentials.enc")
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")

	store := NewFileStore("file://"+location, WithEncryptionKey(key))
	testStore(t, store)

	require.NoError(t, store.Save(ctx, &Pair{AccessToken: "secret-access", RefreshToken: "secret-refresh"}))
	raw, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-access")

	var other [32]byte
	copy(other[:], "fedcba9876543210fedcba9876543210")
	_, err = NewFileStore("file://"+location, WithEncryptionKey(other)).Load(ctx)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestParseKey(t *testing.T) {
	testCases := []struct {
		name    string
		encoded string
		wantErr bool
	}{
		{name: "valid", encoded: "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="},
		{name: "short", encoded: "c2hvcnQ=", wantErr: true},
		{name: "not base64", encoded: "***", wantErr: true},
	}
	for _, tc := range testCases {
		key, err := ParseKey(tc.encoded)
		if tc.wantErr {
			assert.Error(t, err, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		assert.EqualValues(t, "0123456789abcdef0123456789abcdef", string(key[:]), tc.name)
	}
}

func TestPair_AccessExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	actual, ok := (&Pair{AccessToken: token}).AccessExpiry()
	assert.True(t, ok)
	assert.True(t, exp.Equal(actual))

	_, ok = (&Pair{AccessToken: "opaque"}).AccessExpiry()
	assert.False(t, ok)
	_, ok = (&Pair{}).AccessExpiry()
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MAILNOTIFY_TEST_REDIS")
	if addr == "" {
		t.Skip("MAILNOTIFY_TEST_REDIS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	testStore(t, NewRedisStore(rdb, "mailnotify-test:", time.Minute))
}
