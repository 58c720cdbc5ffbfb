package testutil

import (
	"context"
	"errors"

	"github.com/onnwee/command-tender/backend/store"
)

// ErrBackend is the underlying failure returned by FailingStore.
var ErrBackend = errors.New("backend unavailable")

// FailingStore is a store.Store whose backend is down. Reads return ErrBackend,
// mutations return store.ErrUnavailable wrapping ErrBackend.
type FailingStore struct {
	// Calls counts every operation attempted.
	Calls int
}

func (f *FailingStore) unavailable() error {
	f.Calls++
	return errors.Join(store.ErrUnavailable, ErrBackend)
}

func (f *FailingStore) List(context.Context) ([]store.Command, error) {
	f.Calls++
	return nil, ErrBackend
}

func (f *FailingStore) Get(context.Context, string) (store.Command, error) {
	return store.Command{}, f.unavailable()
}

func (f *FailingStore) Add(context.Context, string, string) (store.Command, error) {
	return store.Command{}, f.unavailable()
}

func (f *FailingStore) Delete(context.Context, string) (string, error) {
	return "", f.unavailable()
}

func (f *FailingStore) Edit(context.Context, string, string) (store.Command, error) {
	return store.Command{}, f.unavailable()
}

func (f *FailingStore) Ping(context.Context) error {
	f.Calls++
	return ErrBackend
}

func (f *FailingStore) Close() error { return nil }
