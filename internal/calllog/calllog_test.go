package calllog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-card-studio/internal/gemini"
)

func openTemp(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calls", "calls.db")
	l, err := Open(path, nil)
	require.NoError(t, err)
	return l, path
}

func TestRecordAndRecent(t *testing.T) {
	l, path := openTemp(t)
	ctx := context.Background()

	l.RecordCall(ctx, gemini.Call{Kind: gemini.CallGreeting, Model: "m1", Duration: 1500 * time.Millisecond})
	l.RecordCall(ctx, gemini.Call{Kind: gemini.CallImage, Model: "m2", Duration: time.Second, Err: errors.New("quota")})
	require.NoError(t, l.Close())

	// Reopening runs the migration again without touching the data.
	l, err := Open(path, nil)
	require.NoError(t, err)
	defer l.Close()

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "image", entries[0].Kind)
	assert.Equal(t, "quota", entries[0].Error)
	assert.Equal(t, "greeting", entries[1].Kind)
	assert.Equal(t, int64(1500), entries[1].DurationMS)
	assert.Empty(t, entries[1].Error)
}

func TestSummarize(t *testing.T) {
	l, _ := openTemp(t)
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.RecordCall(ctx, gemini.Call{Kind: gemini.CallVideoPoll, Model: "veo", Duration: 100 * time.Millisecond})
	}
	l.RecordCall(ctx, gemini.Call{Kind: gemini.CallVideoSubmit, Model: "veo", Duration: 300 * time.Millisecond, Err: errors.New("denied")})

	var summary []Summary
	require.Eventually(t, func() bool {
		var err error
		summary, err = l.Summarize(ctx)
		return err == nil && len(summary) == 2 && summary[0].Calls == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, Summary{Kind: "video_poll", Calls: 3, Failures: 0, AvgMillis: 100}, summary[0])
	assert.Equal(t, "video_submit", summary[1].Kind)
	assert.Equal(t, 1, summary[1].Failures)
}

func TestRecordAfterCloseIsIgnored(t *testing.T) {
	l, _ := openTemp(t)
	require.NoError(t, l.Close())
	assert.NotPanics(t, func() {
		l.RecordCall(context.Background(), gemini.Call{Kind: gemini.CallQuotes})
	})
}
