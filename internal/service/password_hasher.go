package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// BcryptPasswordHasher bounds concurrent bcrypt work to a fixed number of slots so
// hashing bursts cannot starve request handling.
type BcryptPasswordHasher struct {
	Cost  int
	slots *semaphore.Weighted
}

func NewBcryptPasswordHasher(cost int, workers int) *BcryptPasswordHasher {
	if workers < 1 {
		workers = 1
	}
	return &BcryptPasswordHasher{
		Cost:  cost,
		slots: semaphore.NewWeighted(int64(workers)),
	}
}

func (h *BcryptPasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	release, err := h.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return string(bytes), nil
}

func (h *BcryptPasswordHasher) Verify(ctx context.Context, hash string, password string) (bool, error) {
	release, err := h.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrHashing, err)
	}
}

func (h *BcryptPasswordHasher) acquire(ctx context.Context) (func(), error) {
	if h.slots == nil {
		return func() {}, nil
	}
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return func() { h.slots.Release(1) }, nil
}
