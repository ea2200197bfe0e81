// Package view implements the shared list/detail lifecycle of the four
// dashboard resources. A Resource loads a list on activation, loads a
// detail on selection, and keeps the two failure domains separate: a dead
// detail fetch never discards a rendered list, and a dead list fetch is an
// error state, not an empty list.
package view

import (
	"context"
	"sync"
)

type Lister[T any] func(ctx context.Context) ([]T, error)
type Getter[T any] func(ctx context.Context, id string) (*T, error)

// Resource holds one view's transient cache. It is discarded on
// navigation; nothing here outlives the view.
type Resource[T any] struct {
	name string
	list Lister[T]
	get  Getter[T]

	// onAuthFailure is invoked with the failing error when a fetch comes
	// back 401, before the error is stored; it is where session
	// destruction is hooked in.
	onAuthFailure func(error) bool

	mu        sync.Mutex
	items     []T
	loaded    bool
	listErr   error
	detail    *T
	detailErr error
	gen       uint64
}

func NewResource[T any](name string, list Lister[T], get Getter[T], onAuthFailure func(error) bool) *Resource[T] {
	if onAuthFailure == nil {
		onAuthFailure = func(error) bool { return false }
	}
	return &Resource[T]{name: name, list: list, get: get, onAuthFailure: onAuthFailure}
}

func (r *Resource[T]) Name() string { return r.name }

// Activate fetches the list. On failure any previously loaded items are
// kept and the error state is set; the caller distinguishes "failed to
// load" from "no items" via ListErr.
func (r *Resource[T]) Activate(ctx context.Context) error {
	items, err := r.list(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.onAuthFailure(err)
		r.listErr = err
		return err
	}
	r.items = items
	r.loaded = true
	r.listErr = nil
	return nil
}

// Select fetches one record by id. Responses from fetches that have been
// superseded by a later Select are dropped so an early reply can never
// overwrite a later selection.
func (r *Resource[T]) Select(ctx context.Context, id string) error {
	r.mu.Lock()
	r.gen++
	myGen := r.gen
	r.mu.Unlock()

	detail, err := r.get(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if myGen != r.gen {
		// a newer selection is in flight or already settled
		return nil
	}
	if err != nil {
		r.onAuthFailure(err)
		r.detail = nil
		r.detailErr = err
		return err
	}
	r.detail = detail
	r.detailErr = nil
	return nil
}

// Back returns from detail to the list, clearing only the selection and
// its error; the fetched list stays.
func (r *Resource[T]) Back() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.detail = nil
	r.detailErr = nil
}

// Items returns the current list. Loaded is false until a list fetch has
// ever succeeded.
func (r *Resource[T]) Items() (items []T, loaded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items, r.loaded
}

// ListErr returns the last list-fetch failure, or nil.
func (r *Resource[T]) ListErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listErr
}

// Detail returns the current selection and its error state.
func (r *Resource[T]) Detail() (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detail, r.detailErr
}
