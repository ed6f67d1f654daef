package oauth2client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AmmannChristian/go-oauth2handler/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher hands out numbered tokens and can be made to block or fail.
type countingFetcher struct {
	calls   atomic.Int32
	renews  atomic.Int32
	gate    chan struct{}
	started chan struct{}

	mu     sync.Mutex
	err    error
	absent bool
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{started: make(chan struct{}, 64)}
}

func (f *countingFetcher) Fetch(ctx context.Context) (*Token, error) {
	n := f.calls.Add(1)
	f.started <- struct{}{}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, nil
		}
	}

	f.mu.Lock()
	err, absent := f.err, f.absent
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if absent {
		return nil, nil
	}
	return &Token{AccessToken: fmt.Sprintf("token-%d", n), TokenType: "Bearer", ExpiresIn: time.Hour}, nil
}

func (f *countingFetcher) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *countingFetcher) produceNothing(absent bool) {
	f.mu.Lock()
	f.absent = absent
	f.mu.Unlock()
}

// renewingFetcher records the token passed to Renew.
type renewingFetcher struct {
	*countingFetcher
	got *Token
}

func (f *renewingFetcher) Renew(ctx context.Context, current *Token) (*Token, error) {
	f.renews.Add(1)
	f.got = current
	return &Token{AccessToken: "renewed"}, nil
}

func TestTokenCache_Token_FetchesOnceAndCaches(t *testing.T) {
	fetcher := newCountingFetcher()
	cache := NewTokenCache(fetcher)

	assert.Nil(t, cache.Cached())

	first, err := cache.Token(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "token-1", first.AccessToken)

	second, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, cache.Cached())
	assert.EqualValues(t, 1, fetcher.calls.Load())
}

func TestTokenCache_Token_ConcurrentCallersShareOneFetch(t *testing.T) {
	const callers = 10

	fetcher := newCountingFetcher()
	fetcher.gate = make(chan struct{})
	cache := NewTokenCache(fetcher)

	var wg sync.WaitGroup
	results := make([]*Token, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Token(context.Background())
		}(i)
	}

	// Let the first fetch start, give the rest time to queue, then release it.
	<-fetcher.started
	time.Sleep(20 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestTokenCache_Token_ConcurrentAgainstTokenServer(t *testing.T) {
	const callers = 10

	server := testutil.NewTokenServer(t)
	release := server.Hold()

	cache, err := NewTokenCacheFromConfig(Config{
		TokenURL:     server.TokenURL(),
		ClientID:     testutil.ClientID,
		ClientSecret: testutil.ClientSecret,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	tokens := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := cache.Token(context.Background())
			if assert.NoError(t, err) && assert.NotNil(t, token) {
				tokens <- token.AccessToken
			}
		}()
	}

	<-server.Started()
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()
	close(tokens)

	assert.Equal(t, 1, server.RequestCount())

	seen := map[string]struct{}{}
	for token := range tokens {
		seen[token] = struct{}{}
	}
	assert.Len(t, seen, 1)
}

func TestTokenCache_Token_ErrorIsNotCached(t *testing.T) {
	errBoom := errors.New("boom")
	fetcher := newCountingFetcher()
	fetcher.fail(errBoom)
	cache := NewTokenCache(fetcher)

	token, err := cache.Token(context.Background())
	assert.Nil(t, token)
	assert.ErrorIs(t, err, errBoom)
	assert.Nil(t, cache.Cached())

	fetcher.fail(nil)
	token, err = cache.Token(context.Background())
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestTokenCache_Token_AbsentIsRetried(t *testing.T) {
	fetcher := newCountingFetcher()
	fetcher.produceNothing(true)
	cache := NewTokenCache(fetcher)

	token, err := cache.Token(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, token)

	fetcher.produceNothing(false)
	token, err = cache.Token(context.Background())
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestTokenCache_Token_CancelledWhileWaiting(t *testing.T) {
	fetcher := newCountingFetcher()
	fetcher.gate = make(chan struct{})
	defer close(fetcher.gate)
	cache := NewTokenCache(fetcher)

	go func() { _, _ = cache.Token(context.Background()) }()
	<-fetcher.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	token, err := cache.Token(ctx)
	assert.NoError(t, err)
	assert.Nil(t, token)
	assert.EqualValues(t, 1, fetcher.calls.Load(), "a waiting caller must not fetch")
}

func TestTokenCache_Token_CancelledContext(t *testing.T) {
	fetcher := newCountingFetcher()
	cache := NewTokenCache(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	token, err := cache.Token(ctx)
	assert.NoError(t, err)
	assert.Nil(t, token)
	assert.Nil(t, cache.Cached())
}

func TestTokenCache_Refresh_ReplacesToken(t *testing.T) {
	fetcher := newCountingFetcher()
	cache := NewTokenCache(fetcher)

	first, err := cache.Token(context.Background())
	require.NoError(t, err)

	refreshed, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	assert.NotEqual(t, first.AccessToken, refreshed.AccessToken)
	assert.Same(t, refreshed, cache.Cached())

	// The old token object is unchanged.
	assert.Equal(t, "token-1", first.AccessToken)

	again, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Same(t, refreshed, again)
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestTokenCache_Refresh_EmptyCache(t *testing.T) {
	fetcher := newCountingFetcher()
	cache := NewTokenCache(fetcher)

	token, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.EqualValues(t, 1, fetcher.calls.Load())
}

func TestTokenCache_Refresh_FailureEmptiesCache(t *testing.T) {
	errBoom := errors.New("boom")
	fetcher := newCountingFetcher()
	cache := NewTokenCache(fetcher)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cache.Cached())

	fetcher.fail(errBoom)
	token, err := cache.Refresh(context.Background())
	assert.Nil(t, token)
	assert.ErrorIs(t, err, errBoom)
	assert.Nil(t, cache.Cached())
}

func TestTokenCache_Refresh_AbsentEmptiesCache(t *testing.T) {
	fetcher := newCountingFetcher()
	cache := NewTokenCache(fetcher)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	fetcher.produceNothing(true)
	token, err := cache.Refresh(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, token)
	assert.Nil(t, cache.Cached())
}

func TestTokenCache_Refresh_UsesRenewer(t *testing.T) {
	fetcher := &renewingFetcher{countingFetcher: newCountingFetcher()}
	cache := NewTokenCache(fetcher)

	held, err := cache.Token(context.Background())
	require.NoError(t, err)

	token, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "renewed", token.AccessToken)
	assert.Same(t, held, fetcher.got)
	assert.EqualValues(t, 1, fetcher.calls.Load())
	assert.EqualValues(t, 1, fetcher.renews.Load())
}

func TestTokenCache_Refresh_WithRefreshTokenGrant(t *testing.T) {
	server := testutil.NewTokenServer(t)
	server.IssueRefreshTokens(true)

	cache, err := NewTokenCacheFromConfig(Config{
		TokenURL:        server.TokenURL(),
		ClientID:        testutil.ClientID,
		ClientSecret:    testutil.ClientSecret,
		UseRefreshToken: true,
	})
	require.NoError(t, err)

	first, err := cache.Token(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first.RefreshToken)

	second, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	requests := server.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "refresh_token", requests[1].Form.Get("grant_type"))
	assert.Equal(t, first.RefreshToken, requests[1].Form.Get("refresh_token"))
}

func TestTokenCache_Refresh_Logs(t *testing.T) {
	logger := &stubLogger{}
	fetcher := newCountingFetcher()
	cache := NewTokenCache(fetcher, WithLogger(logger))

	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	fetcher.fail(errors.New("boom"))
	_, _ = cache.Refresh(context.Background())

	msgs := logger.getMessages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "refreshed access token")
	assert.Contains(t, msgs[1], "token refresh failed: boom")
}

func TestTokenCache_Clear(t *testing.T) {
	fetcher := newCountingFetcher()
	cache := NewTokenCache(fetcher)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	cache.Clear()
	assert.Nil(t, cache.Cached())

	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token.AccessToken)
}

func TestNewTokenCacheFromConfig_InvalidConfig(t *testing.T) {
	cache, err := NewTokenCacheFromConfig(Config{})
	assert.Nil(t, cache)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTokenCache_TokenSource(t *testing.T) {
	t.Run("returns the cached token", func(t *testing.T) {
		fetcher := newCountingFetcher()
		cache := NewTokenCache(fetcher)

		src := cache.TokenSource(context.Background())
		token, err := src.Token()
		require.NoError(t, err)
		assert.Equal(t, "token-1", token.AccessToken)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.EqualValues(t, 3600, token.ExpiresIn)

		_, err = src.Token()
		require.NoError(t, err)
		assert.EqualValues(t, 1, fetcher.calls.Load())
	})

	t.Run("no token", func(t *testing.T) {
		fetcher := newCountingFetcher()
		fetcher.produceNothing(true)
		cache := NewTokenCache(fetcher)

		token, err := cache.TokenSource(context.Background()).Token()
		assert.Nil(t, token)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("fetch error", func(t *testing.T) {
		errBoom := errors.New("boom")
		fetcher := newCountingFetcher()
		fetcher.fail(errBoom)
		cache := NewTokenCache(fetcher)

		_, err := cache.TokenSource(context.Background()).Token()
		assert.ErrorIs(t, err, errBoom)
	})
}

func BenchmarkTokenCache_Token_Cached(b *testing.B) {
	cache := NewTokenCache(newCountingFetcher())
	if _, err := cache.Token(context.Background()); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = cache.Token(context.Background())
		}
	})
}
