package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := hasher.Hash(ctx, "Secret1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1!", hash)

	ok, err := hasher.Verify(ctx, hash, "Secret1!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify(ctx, hash, "secret1!")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptPasswordHasher_MalformedDigest(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost, 1)

	ok, err := hasher.Verify(context.Background(), "not-a-bcrypt-digest", "Secret1!")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrHashing)
}

func TestBcryptPasswordHasher_WaitHonoursContext(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost, 1)
	require.NoError(t, hasher.slots.Acquire(context.Background(), 1))
	defer hasher.slots.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hasher.Hash(ctx, "Secret1!")
	assert.ErrorIs(t, err, ErrHashing)
	assert.ErrorIs(t, err, context.Canceled)
}
