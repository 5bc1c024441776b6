package store

import "errors"

// Sentinel errors for the store.
var (
	// ErrStoreDisposed is returned when mutations are attempted on a
	// disposed store. Disposal is final; the error is deliberate so that
	// misuse fails loudly instead of silently corrupting state.
	ErrStoreDisposed = errors.New("store is disposed")

	// ErrNilFetcher is returned by FetchCache when no fetcher is supplied.
	ErrNilFetcher = errors.New("cache fetcher cannot be nil")
)
