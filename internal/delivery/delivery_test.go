package delivery

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"echoflow/internal/logging"
)

type recorder struct {
	events   []string
	clipErr  error
	typeErr  error
	hideErr  error
	clip     string
	typed    string
	sleptFor time.Duration
}

type fakeClipboard struct{ r *recorder }

func (f fakeClipboard) Write(text string) error {
	f.r.events = append(f.r.events, "clipboard")
	if f.r.clipErr != nil {
		return f.r.clipErr
	}
	f.r.clip = text
	return nil
}

type fakeTypist struct{ r *recorder }

func (f fakeTypist) Type(_ context.Context, text string) error {
	f.r.events = append(f.r.events, "type")
	if f.r.typeErr != nil {
		return f.r.typeErr
	}
	f.r.typed = text
	return nil
}

type fakeWindow struct{ r *recorder }

func (f fakeWindow) Show() error {
	f.r.events = append(f.r.events, "show")
	return nil
}

func (f fakeWindow) Hide() error {
	f.r.events = append(f.r.events, "hide")
	return f.r.hideErr
}

func (f fakeWindow) Focus() error {
	f.r.events = append(f.r.events, "focus")
	return nil
}

func newDispatcher(r *recorder) *Dispatcher {
	d := New(fakeClipboard{r}, fakeTypist{r}, fakeWindow{r}, DefaultSettleDelay, logging.Discard())
	d.sleep = func(_ context.Context, dur time.Duration) error {
		r.events = append(r.events, "settle")
		r.sleptFor = dur
		return nil
	}
	return d
}

func TestDeliverClipboard(t *testing.T) {
	r := &recorder{}
	rep := newDispatcher(r).Deliver(context.Background(), "hello", false)
	if rep.Method != MethodClipboard || rep.FellBack || rep.Err != nil {
		t.Fatalf("report = %+v", rep)
	}
	if r.clip != "hello" || !reflect.DeepEqual(r.events, []string{"clipboard"}) {
		t.Fatalf("events = %v clip = %q", r.events, r.clip)
	}
}

func TestDeliverDirectTypeSequence(t *testing.T) {
	r := &recorder{}
	rep := newDispatcher(r).Deliver(context.Background(), "hello", true)
	if rep.Method != MethodDirectType || rep.FellBack || rep.Err != nil {
		t.Fatalf("report = %+v", rep)
	}
	want := []string{"hide", "settle", "type", "show", "focus"}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("events = %v, want %v", r.events, want)
	}
	if r.sleptFor != 500*time.Millisecond || r.typed != "hello" {
		t.Fatalf("slept %v typed %q", r.sleptFor, r.typed)
	}
}

func TestDeliverDirectTypeFallsBackToClipboard(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*recorder)
	}{
		{"type fails", func(r *recorder) { r.typeErr = errors.New("injection blocked") }},
		{"hide fails", func(r *recorder) { r.hideErr = errors.New("no window") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			tt.setup(r)
			rep := newDispatcher(r).Deliver(context.Background(), "hello", true)
			if rep.Method != MethodClipboard || !rep.FellBack || rep.Err != nil {
				t.Fatalf("report = %+v", rep)
			}
			if r.clip != "hello" {
				t.Fatalf("clipboard = %q", r.clip)
			}
		})
	}
}

func TestDeliverSwallowsFallbackFailure(t *testing.T) {
	r := &recorder{typeErr: errors.New("blocked"), clipErr: errors.New("clipboard locked")}
	rep := newDispatcher(r).Deliver(context.Background(), "hello", true)
	var de *DeliveryError
	if !errors.As(rep.Err, &de) || de.Op != "clipboard" {
		t.Fatalf("report err = %v", rep.Err)
	}
	if !errors.Is(rep.Err, r.clipErr) {
		t.Fatal("DeliveryError should unwrap to the host failure")
	}
}

func TestDeliverWithoutTypistFallsBack(t *testing.T) {
	r := &recorder{}
	d := New(fakeClipboard{r}, nil, nil, 0, logging.Discard())
	rep := d.Deliver(context.Background(), "x", true)
	if !rep.FellBack || r.clip != "x" {
		t.Fatalf("report = %+v clip = %q", rep, r.clip)
	}
}
