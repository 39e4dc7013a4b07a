package una

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/urbanweave/streetscope/pkg/errors"
)

func TestRunOriginsProcessesAll(t *testing.T) {
	origins := []int{3, 1, 4, 1, 5, 9, 2, 6}

	var mu sync.Mutex
	var seen []int
	err := runOrigins(context.Background(), origins, 3, nil,
		func() (func(ctx context.Context, origin int) error, error) {
			return func(ctx context.Context, origin int) error {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, origin)
				return nil
			}, nil
		})
	if err != nil {
		t.Fatalf("runOrigins() failed: %v", err)
	}

	sort.Ints(seen)
	want := append([]int(nil), origins...)
	sort.Ints(want)
	if len(seen) != len(want) {
		t.Fatalf("processed %d origins, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("processed origins %v, want %v", seen, want)
		}
	}
}

func TestRunOriginsFailFast(t *testing.T) {
	origins := make([]int, 100)
	for i := range origins {
		origins[i] = i
	}

	err := runOrigins(context.Background(), origins, 4, nil,
		func() (func(ctx context.Context, origin int) error, error) {
			return func(ctx context.Context, origin int) error {
				if origin == 7 {
					return errors.New(errors.ErrCodeInvalidInput, "bad origin")
				}
				return nil
			}, nil
		})
	if !errors.Is(err, errors.ErrCodeWorkerFailed) {
		t.Errorf("error = %v, want WORKER_FAILED", err)
	}
}

func TestRunOriginsWorkerSetupFailure(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 8; i++ {
		err := runOrigins(context.Background(), []int{1, 2, 3}, 2, nil,
			func() (func(ctx context.Context, origin int) error, error) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "no worker view")
			})
		if err == nil {
			t.Fatal("worker setup failure should be reported")
		}
	}

	// A failed setup must not leave the feeder goroutine behind.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && runtime.NumGoroutine() > before {
		time.Sleep(10 * time.Millisecond)
	}
	if got := runtime.NumGoroutine(); got > before {
		t.Errorf("goroutines after failed runs = %d, want <= %d", got, before)
	}
}
