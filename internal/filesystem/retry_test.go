package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingObserver struct {
	stale    map[string]int
	outcomes map[string][]bool
	rejected map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		stale:    make(map[string]int),
		outcomes: make(map[string][]bool),
		rejected: make(map[string]int),
	}
}

func (o *recordingObserver) ObserveStaleError(op string) { o.stale[op]++ }
func (o *recordingObserver) ObserveRetryOutcome(op string, success bool) {
	o.outcomes[op] = append(o.outcomes[op], success)
}
func (o *recordingObserver) ObserveRejectedPath(reason string) { o.rejected[reason]++ }

func useObserver(t *testing.T) *recordingObserver {
	t.Helper()
	obs := newRecordingObserver()
	SetObserver(obs)
	t.Cleanup(func() { SetObserver(nil) })
	return obs
}

func TestWithRetry_RecoversFromStaleHandle(t *testing.T) {
	obs := useObserver(t)
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	calls := 0
	got, err := withRetry("stat", "/pictures/a.jpg", config, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.stale["stat"] != 2 {
		t.Errorf("stale errors = %d, want 2", obs.stale["stat"])
	}
	if len(obs.outcomes["stat"]) != 1 || !obs.outcomes["stat"][0] {
		t.Errorf("outcomes = %v, want [true]", obs.outcomes["stat"])
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	obs := useObserver(t)
	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	calls := 0
	_, err := withRetry("open", "/pictures/a.jpg", config, func() (string, error) {
		calls++
		return "", syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("err = %v, want ESTALE", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(obs.outcomes["open"]) != 1 || obs.outcomes["open"][0] {
		t.Errorf("outcomes = %v, want [false]", obs.outcomes["open"])
	}
}

func TestWithRetry_NonStaleFailsFast(t *testing.T) {
	calls := 0
	_, err := withRetry("stat", "/x", DefaultRetryConfig(), func() (int, error) {
		calls++
		return 0, os.ErrPermission
	})

	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("err = %v, want ErrPermission", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWrappers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(file, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	config := DefaultRetryConfig()

	info, err := StatWithRetry(file, config)
	if err != nil || info.Size() != 4 {
		t.Fatalf("StatWithRetry = %v, %v", info, err)
	}

	if _, err := LstatWithRetry(file, config); err != nil {
		t.Fatalf("LstatWithRetry error: %v", err)
	}

	f, err := OpenWithRetry(file, config)
	if err != nil {
		t.Fatalf("OpenWithRetry error: %v", err)
	}
	f.Close()

	entries, err := ReadDirWithRetry(dir, config)
	if err != nil {
		t.Fatalf("ReadDirWithRetry error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.jpg" {
		t.Errorf("entries = %v", entries)
	}

	if _, err := StatWithRetry(filepath.Join(dir, "missing.jpg"), config); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
