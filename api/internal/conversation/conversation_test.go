package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipartner/api/internal/kv"
)

type brokenStore struct{ kv.Store }

var errDisk = errors.New("disk full")

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errDisk }
func (brokenStore) Set(context.Context, string, []byte) error  { return errDisk }
func (brokenStore) Delete(context.Context, string) error       { return errDisk }

func TestHolder_EmptyByDefault(t *testing.T) {
	h := NewHolder(kv.NewMemory())
	require.NoError(t, h.Load(context.Background()))
	assert.Nil(t, h.Current())
}

func TestHolder_EstablishPersists(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	h := NewHolder(store)
	require.NoError(t, h.Establish(ctx, "2+2=?", "", "4"))

	reloaded := NewHolder(store)
	require.NoError(t, reloaded.Load(ctx))
	require.NotNil(t, reloaded.Current())
	assert.Equal(t, "2+2=?", reloaded.Current().OriginalProblem.Text)
	assert.Equal(t, "4", reloaded.Current().PreviousResponse)

	raw, err := store.Get(ctx, Key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"originalProblem":{"text":"2+2=?"},"previousResponse":"4"}`, string(raw))
}

func TestHolder_EstablishOverwrites(t *testing.T) {
	ctx := context.Background()
	h := NewHolder(kv.NewMemory())
	require.NoError(t, h.Establish(ctx, "first", "", "a"))
	require.NoError(t, h.Establish(ctx, "second", "aW1n", "b"))

	c := h.Current()
	assert.Equal(t, "second", c.OriginalProblem.Text)
	assert.Equal(t, "aW1n", c.OriginalProblem.Image)
	assert.Equal(t, "b", c.PreviousResponse)
}

func TestHolder_AdvanceKeepsOriginalProblem(t *testing.T) {
	ctx := context.Background()
	h := NewHolder(kv.NewMemory())
	require.NoError(t, h.Establish(ctx, "x^2=4", "", "x=±2"))
	require.NoError(t, h.Advance(ctx, "because 2·2=4"))

	c := h.Current()
	assert.Equal(t, "x^2=4", c.OriginalProblem.Text)
	assert.Equal(t, "because 2·2=4", c.PreviousResponse)
}

func TestHolder_AdvanceOnEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	h := NewHolder(store)
	require.NoError(t, h.Advance(ctx, "orphan"))
	assert.Nil(t, h.Current())

	_, err := store.Get(ctx, Key)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestHolder_Clear(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	h := NewHolder(store)
	require.NoError(t, h.Establish(ctx, "p", "", "r"))
	require.NoError(t, h.Clear(ctx))
	assert.Nil(t, h.Current())

	_, err := store.Get(ctx, Key)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestHolder_CurrentIsACopy(t *testing.T) {
	h := NewHolder(kv.NewMemory())
	require.NoError(t, h.Establish(context.Background(), "p", "", "r"))
	h.Current().PreviousResponse = "mutated"
	assert.Equal(t, "r", h.Current().PreviousResponse)
}

func TestHolder_CorruptRecordLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, Key, []byte("{oops")))

	h := NewHolder(store)
	assert.Error(t, h.Load(ctx))
	assert.Nil(t, h.Current())
}

func TestHolder_StorageFailuresAreNonFatal(t *testing.T) {
	ctx := context.Background()
	h := NewHolder(brokenStore{})

	assert.ErrorIs(t, h.Load(ctx), errDisk)
	assert.Nil(t, h.Current())

	assert.ErrorIs(t, h.Establish(ctx, "p", "", "r"), errDisk)
	require.NotNil(t, h.Current(), "in-memory state survives a failed write")
	assert.Equal(t, "p", h.Current().OriginalProblem.Text)

	assert.ErrorIs(t, h.Clear(ctx), errDisk)
	assert.Nil(t, h.Current())
}
