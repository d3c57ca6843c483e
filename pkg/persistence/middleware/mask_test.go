package middleware_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/aretw0/mosaic/pkg/adapters/memory"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryMaskMiddleware(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewQueryMaskMiddleware([]string{"token", "^ssn$"})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	snap := domain.NewSnapshot("pii", "http://localhost/")
	snap.URL = "http://localhost/users?access_token=secret&page=2#top"
	snap.History = append(snap.History, "http://localhost/form?ssn=999&ssn_hint=x", snap.URL)
	require.NoError(t, store.Save(ctx, "pii", snap))

	assert.Equal(t, "http://localhost/users?access_token=secret&page=2#top", snap.URL, "caller's snapshot is untouched")

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)

	u, err := url.Parse(stored.URL)
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, u.Query().Get("access_token"))
	assert.Equal(t, "2", u.Query().Get("page"))
	assert.Equal(t, "top", u.Fragment)

	require.Len(t, stored.History, 3)
	assert.Equal(t, "http://localhost/", stored.History[0])
	form, err := url.Parse(stored.History[1])
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, form.Query().Get("ssn"))
	assert.Equal(t, "x", form.Query().Get("ssn_hint"))
}

func TestQueryMaskMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewQueryMaskMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_SealsMaskedSnapshots(t *testing.T) {
	underlying := memory.NewStore()
	mask, err := middleware.NewQueryMaskMiddleware([]string{"token"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, mask, enc)
	ctx := context.Background()
	snap := domain.NewSnapshot("c", "http://localhost/?token=t")
	require.NoError(t, store.Save(ctx, "c", snap))

	raw, err := underlying.Load(ctx, "c")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)

	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/?token=%2A%2A%2A", loaded.URL)
}
