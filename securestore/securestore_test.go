package securestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := NewMemStore(nil)
	require.NoError(t, err)
	loc := Location{Namespace: "aura", Key: "device-key"}
	store.Grant(loc, CapRead, CapWrite)

	require.NoError(t, store.Put(loc, nil, []byte("secret material")))
	got, err := store.Get(loc, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("secret material"), got)
}

func TestGetDeniedWithoutCapability(t *testing.T) {
	store, err := NewMemStore(nil)
	require.NoError(t, err)
	loc := Location{Namespace: "aura", Key: "device-key"}
	store.Grant(loc, CapWrite)
	require.NoError(t, store.Put(loc, nil, []byte("x")))

	_, err = store.Get(loc, nil)
	require.ErrorIs(t, err, ErrDenied)
}

func TestGetNotFound(t *testing.T) {
	store, err := NewMemStore(nil)
	require.NoError(t, err)
	loc := Location{Namespace: "aura", Key: "missing"}
	store.Grant(loc, CapRead)
	_, err = store.Get(loc, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteThenGetNotFound(t *testing.T) {
	store, err := NewMemStore(nil)
	require.NoError(t, err)
	loc := Location{Namespace: "aura", Key: "device-key"}
	store.Grant(loc, CapRead, CapWrite, CapDelete)

	require.NoError(t, store.Put(loc, nil, []byte("x")))
	require.NoError(t, store.Delete(loc, nil))
	_, err = store.Get(loc, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListScopedToNamespace(t *testing.T) {
	store, err := NewMemStore(nil)
	require.NoError(t, err)
	a := Location{Namespace: "aura", Key: "a"}
	b := Location{Namespace: "aura", Key: "b"}
	other := Location{Namespace: "other", Key: "c"}
	for _, l := range []Location{a, b, other} {
		store.Grant(l, CapWrite)
		require.NoError(t, store.Put(l, nil, []byte("v")))
	}
	store.Grant(Location{Namespace: "aura"}, CapList)

	locs, err := store.List("aura", nil)
	require.NoError(t, err)
	require.Len(t, locs, 2)
}

func TestTimeBoundTokenExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store, err := NewMemStore(clock)
	require.NoError(t, err)
	loc := Location{Namespace: "aura", Key: "device-key"}
	store.Grant(loc, CapRead, CapWrite, CapTimeBound)
	require.NoError(t, store.Put(loc, nil, []byte("secret")))

	token, err := store.IssueTimeBoundToken(loc, nil, time.Minute)
	require.NoError(t, err)

	got, err := store.Redeem(token, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), got)

	now = now.Add(2 * time.Minute)
	_, err = store.Redeem(token, nil)
	require.ErrorIs(t, err, ErrExpired)
}

func TestTimeBoundTokenDeniedWithoutCapability(t *testing.T) {
	store, err := NewMemStore(nil)
	require.NoError(t, err)
	loc := Location{Namespace: "aura", Key: "device-key"}
	store.Grant(loc, CapRead, CapWrite)
	require.NoError(t, store.Put(loc, nil, []byte("secret")))

	_, err = store.IssueTimeBoundToken(loc, nil, time.Minute)
	require.ErrorIs(t, err, ErrDenied)
}
