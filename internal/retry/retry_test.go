package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.c = make(chan time.Time, 1)
	f.c <- time.Now()
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

func testPolicy(timer *fakeTimer) Policy {
	p := Default("test", nil)
	p.Timer = timer
	return p
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	timer := &fakeTimer{}
	calls := 0

	got, err := Do(context.Background(), testPolicy(timer), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("upstream down")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.waits)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	timer := &fakeTimer{}
	calls := 0
	var last error

	_, err := Do(context.Background(), testPolicy(timer), func(ctx context.Context) (int, error) {
		calls++
		last = errors.New("failure " + string(rune('0'+calls)))
		return 0, last
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Same(t, last, err, "the last failure is propagated")
	assert.Len(t, timer.waits, 2)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	errBad := errors.New("malformed")
	timer := &fakeTimer{}
	calls := 0

	p := testPolicy(timer).WithPermanent(func(err error) bool { return errors.Is(err, errBad) })
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, errBad
	})

	require.ErrorIs(t, err, errBad)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.waits)
}

func TestDo_CustomAttemptsAndBackoff(t *testing.T) {
	timer := &fakeTimer{}
	p := Policy{MaxAttempts: 4, Backoff: Linear(10 * time.Millisecond), Timer: timer}

	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, timer.waits)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, testPolicy(&fakeTimer{}), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicy_CopiesDoNotAlias(t *testing.T) {
	base := Default("base", nil)

	named := base.Named("everwebinar.list")
	strict := named.WithPermanent(func(error) bool { return true })

	assert.Equal(t, "base", base.Name)
	assert.Equal(t, "everwebinar.list", named.Name)
	assert.Nil(t, named.Permanent)
	assert.Equal(t, "everwebinar.list", strict.Name)
	assert.NotNil(t, strict.Permanent)
}
