package trim

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TrimAll_PreservesOrder(t *testing.T) {
	t.Parallel()

	tr := newTrimmer(t, ratio(1, 1))
	prompts := []string{
		"",
		"short",
		strings.Repeat("a", 1000),
		"also short",
	}

	results, err := tr.TrimAll(context.Background(), prompts, 100, 2)
	require.NoError(t, err)
	require.Len(t, results, len(prompts))

	assert.Empty(t, results[0].Prompt)
	assert.Equal(t, "short", results[1].Prompt)
	assert.Equal(t, prompts[2][:DefaultMinChunkSize], results[2].Prompt)
	assert.Equal(t, "also short", results[3].Prompt)
}

func Test_TrimAll_ReportsFailingIndex(t *testing.T) {
	t.Parallel()

	boom := errors.New("bad input")
	c := countFunc(func(s string) (int, error) {
		if s == "poison" {
			return 0, boom
		}
		return len(s), nil
	})
	tr := newTrimmer(t, c)

	_, err := tr.TrimAll(context.Background(), []string{"ok", "poison", "ok"}, 10, 1)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "prompt 1")
}

func Test_TrimAll_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := newTrimmer(t, ratio(1, 1))
	_, err := tr.TrimAll(ctx, []string{"a", "b"}, 10, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func Test_Trimmer_ConcurrentCallers(t *testing.T) {
	t.Parallel()

	tr := newTrimmer(t, defaultCounter(t))
	prompt := strings.Repeat("Concurrent callers share nothing but the encoding table.\n\n", 100)

	want, err := tr.Trim(prompt, 200)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := tr.Trim(prompt, 200)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
