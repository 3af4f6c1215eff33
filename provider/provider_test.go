package provider

import (
	"context"
	"strings"
	"testing"
)

type fakeProvider struct{ name string }

func (f fakeProvider) Name() string                     { return f.name }
func (f fakeProvider) IsAvailable(context.Context) bool { return true }

type settings struct{ label string }

func TestRegistryBuild(t *testing.T) {
	r := NewRegistry[settings, fakeProvider]()
	r.Register("b", func(settings) (fakeProvider, error) { return fakeProvider{"b"}, nil })
	r.Register("a", func(s settings) (fakeProvider, error) { return fakeProvider{s.label}, nil })

	p, err := r.Build("a", settings{label: "custom"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Name() != "custom" {
		t.Errorf("expected 'custom', got %q", p.Name())
	}
	if !r.Has("b") || r.Has("c") {
		t.Error("expected Has to report registered names only")
	}
	_, err = r.Build("missing", settings{})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "a, b") {
		t.Errorf("expected registered names in error, got %v", err)
	}
	if got := r.Names(); len(got) != 2 || got[0] != "a" {
		t.Errorf("expected sorted names, got %v", got)
	}
}

func TestSliceIteratorAndCollect(t *testing.T) {
	got, err := Collect[int](context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := FromSlice([]int{1}).Next(ctx); err == nil {
		t.Error("expected context error from Next")
	}
}
