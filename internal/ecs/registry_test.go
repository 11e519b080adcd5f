package ecs

import (
	"errors"
	"testing"

	"sam-segmenter/internal/events"
)

type position struct{ X, Y int }
type label struct{ Text string }

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	e := reg.Create()

	if err := Register(reg, e, &position{X: 1, Y: 2}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := Get[*position](reg, e)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.X != 1 || got.Y != 2 {
		t.Errorf("Get() = %+v", got)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	reg := NewRegistry()
	e := reg.Create()

	_ = Register(reg, e, &label{Text: "first"})
	_ = Register(reg, e, &label{Text: "second"})

	got, err := Get[*label](reg, e)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Text != "second" {
		t.Errorf("Text = %q, want second", got.Text)
	}
}

func TestGetMissingComponent(t *testing.T) {
	reg := NewRegistry()
	e := reg.Create()
	_ = Register(reg, e, &label{})

	if _, err := Get[*position](reg, e); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := Get[*label](reg, e+10); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() unknown entity error = %v, want ErrNotFound", err)
	}
}

func TestRegisterUnknownEntity(t *testing.T) {
	reg := NewRegistry()
	if err := Register(reg, Entity(42), &label{}); err == nil {
		t.Error("expected error registering on unknown entity")
	}
}

func TestDistinctTypesPerEntity(t *testing.T) {
	reg := NewRegistry()
	a, b := reg.Create(), reg.Create()
	_ = Register(reg, a, &label{Text: "a"})
	_ = Register(reg, b, &label{Text: "b"})

	la, _ := Get[*label](reg, a)
	lb, _ := Get[*label](reg, b)
	if la.Text != "a" || lb.Text != "b" {
		t.Errorf("got %q/%q", la.Text, lb.Text)
	}

	reg.Destroy(a)
	if _, err := Get[*label](reg, a); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Destroy error = %v", err)
	}
}

func TestWorldNotifyPublishesNotice(t *testing.T) {
	w := NewWorld(nil)
	var got []events.Notice
	events.On(w.Bus, func(n events.Notice) error {
		got = append(got, n)
		return nil
	})

	if err := w.Notify("Test", events.NoticeWarning, "load the predictor first"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(got) != 1 || got[0].Message != "load the predictor first" || got[0].Level != events.NoticeWarning {
		t.Fatalf("notices = %+v", got)
	}
}
