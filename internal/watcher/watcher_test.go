package watcher

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestClassify(t *testing.T) {
	config := "/home/u/.finwatch/config.yaml"
	cases := []struct {
		name     string
		path     string
		op       fsnotify.Op
		want     Kind
		relevant bool
	}{
		{"config write", config, fsnotify.Write, ConfigChanged, true},
		{"config create", config, fsnotify.Create, ConfigChanged, true},
		{"config delete ignored", config, fsnotify.Remove, 0, false},
		{"csv write", "/data/feeds/ticks.csv", fsnotify.Write, SourceFileChanged, true},
		{"csv create", "/data/feeds/ticks.CSV", fsnotify.Create, SourceFileChanged, true},
		{"csv rename ignored", "/data/feeds/ticks.csv", fsnotify.Rename, 0, false},
		{"unrelated file", "/data/feeds/notes.txt", fsnotify.Write, 0, false},
		{"chmod ignored", config, fsnotify.Chmod, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, relevant := classify(tc.path, tc.op, config)
			if relevant != tc.relevant {
				t.Fatalf("relevant = %v, want %v", relevant, tc.relevant)
			}
			if relevant && ev.Kind != tc.want {
				t.Errorf("kind = %v, want %v", ev.Kind, tc.want)
			}
		})
	}
}

func TestWatcherDeliversConfigChange(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(config, []byte("data_dir: /tmp\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w := New(config, nil, log.New(io.Discard, "", 0), WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(config, []byte("data_dir: /var\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Kind != ConfigChanged {
			t.Errorf("kind = %v, want ConfigChanged", ev.Kind)
		}
		if ev.Path != config {
			t.Errorf("path = %q, want %q", ev.Path, config)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestWatcherDeliversSourceFileChange(t *testing.T) {
	dir := t.TempDir()
	feeds := filepath.Join(dir, "feeds")
	if err := os.Mkdir(feeds, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	config := filepath.Join(dir, "config.yaml")

	w := New(config, []string{feeds}, log.New(io.Discard, "", 0), WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	csv := filepath.Join(feeds, "bars.csv")
	if err := os.WriteFile(csv, []byte("t,o,h,l,c,v\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Kind != SourceFileChanged {
			t.Errorf("kind = %v, want SourceFileChanged", ev.Kind)
		}
		if ev.Path != csv {
			t.Errorf("path = %q, want %q", ev.Path, csv)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestPollFallbackDetectsConfigChange(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(config, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w := New(config, nil, log.New(io.Discard, "", 0), WithPollInterval(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.pollLoop(ctx)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(config, []byte("a: 2\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	// Coarse filesystem timestamps can hide a quick rewrite.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(config, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Kind != ConfigChanged {
			t.Errorf("kind = %v, want ConfigChanged", ev.Kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poll fallback delivered nothing")
	}
}

func TestDebounceCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(config, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w := New(config, nil, log.New(io.Discard, "", 0), WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(config, []byte("a: 2\n"), 0o644); err != nil {
			t.Fatalf("rewrite config: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := 0
	deadline := time.After(time.Second)
loop:
	for {
		select {
		case <-w.Events():
			got++
		case <-deadline:
			break loop
		}
	}
	if got != 1 {
		t.Errorf("delivered %d events for one burst, want 1", got)
	}
}
