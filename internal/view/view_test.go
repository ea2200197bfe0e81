package view

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/api"
)

type record struct {
	ID   string
	Name string
}

func staticLister(items []record, err error) Lister[record] {
	return func(ctx context.Context) ([]record, error) { return items, err }
}

func staticGetter(rec *record, err error) Getter[record] {
	return func(ctx context.Context, id string) (*record, error) { return rec, err }
}

func TestActivateLoadsItems(t *testing.T) {
	r := NewResource("agents", staticLister([]record{{ID: "1"}, {ID: "2"}}, nil), nil, nil)
	if err := r.Activate(context.Background()); err != nil {
		t.Fatalf("Activate error: %v", err)
	}
	items, loaded := r.Items()
	if !loaded || len(items) != 2 {
		t.Fatalf("items = %v loaded = %v", items, loaded)
	}
	if r.ListErr() != nil {
		t.Fatalf("unexpected list error: %v", r.ListErr())
	}
}

func TestEmptyListIsLoadedNotError(t *testing.T) {
	r := NewResource("agents", staticLister([]record{}, nil), nil, nil)
	if err := r.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}
	items, loaded := r.Items()
	if !loaded {
		t.Fatal("empty result should still mark the list loaded")
	}
	if len(items) != 0 {
		t.Fatalf("items = %v", items)
	}
}

func TestActivateFailureKeepsPreviousItems(t *testing.T) {
	calls := 0
	lister := func(ctx context.Context) ([]record, error) {
		calls++
		if calls == 1 {
			return []record{{ID: "1"}}, nil
		}
		return nil, errors.New("backend down")
	}
	r := NewResource("agents", lister, nil, nil)
	if err := r.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Activate(context.Background()); err == nil {
		t.Fatal("second Activate should fail")
	}
	items, loaded := r.Items()
	if !loaded || len(items) != 1 {
		t.Fatalf("stale items should survive a failed refresh: %v %v", items, loaded)
	}
	if r.ListErr() == nil {
		t.Fatal("list error should be recorded")
	}
}

func TestSelectAndBack(t *testing.T) {
	rec := &record{ID: "1", Name: "one"}
	r := NewResource("agents", staticLister([]record{*rec}, nil), staticGetter(rec, nil), nil)
	if err := r.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Select(context.Background(), "1"); err != nil {
		t.Fatalf("Select error: %v", err)
	}
	d, err := r.Detail()
	if err != nil || d == nil || d.ID != "1" {
		t.Fatalf("detail = %v err = %v", d, err)
	}

	r.Back()
	d, err = r.Detail()
	if d != nil || err != nil {
		t.Fatalf("Back should clear the selection, got %v %v", d, err)
	}
	items, loaded := r.Items()
	if !loaded || len(items) != 1 {
		t.Fatal("Back must not discard the list")
	}
}

func TestDetailFailureKeepsList(t *testing.T) {
	r := NewResource("agents",
		staticLister([]record{{ID: "1"}}, nil),
		staticGetter(nil, errors.New("not found")), nil)
	if err := r.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Select(context.Background(), "1"); err == nil {
		t.Fatal("Select should fail")
	}
	if _, err := r.Detail(); err == nil {
		t.Fatal("detail error should be recorded")
	}
	items, loaded := r.Items()
	if !loaded || len(items) != 1 {
		t.Fatal("failed detail fetch must not discard the list")
	}
}

func TestStaleSelectResponseIsDropped(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	getter := func(ctx context.Context, id string) (*record, error) {
		if id == "slow" {
			close(firstStarted)
			<-release
			return &record{ID: "slow"}, nil
		}
		return &record{ID: id}, nil
	}
	r := NewResource("agents", nil, getter, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Select(context.Background(), "slow")
	}()
	<-firstStarted

	// a newer selection settles while the first is still in flight
	if err := r.Select(context.Background(), "fast"); err != nil {
		t.Fatal(err)
	}
	close(release)
	wg.Wait()

	d, err := r.Detail()
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.ID != "fast" {
		t.Fatalf("superseded response overwrote the selection: %v", d)
	}
}

func TestAuthFailureHookFires(t *testing.T) {
	var hookErr error
	hook := func(err error) bool {
		hookErr = err
		return api.IsUnauthorized(err)
	}
	r := NewResource("agents",
		staticLister(nil, &api.StatusError{Status: http.StatusUnauthorized}),
		nil, hook)
	if err := r.Activate(context.Background()); err == nil {
		t.Fatal("Activate should fail")
	}
	if !api.IsUnauthorized(hookErr) {
		t.Fatalf("hook saw %v", hookErr)
	}
}
