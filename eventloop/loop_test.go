package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ardar-lang/ardar/values"
)

func TestRunOneDrainsMicrotasksBeforeMacrotask(t *testing.T) {
	l := New()
	var order []string
	l.Post(func() { order = append(order, "macro") })
	l.PostMicrotask(func() { order = append(order, "micro") })
	require.True(t, l.RunOne())
	require.Equal(t, []string{"micro", "macro"}, order)
}

func TestRunDrainsAllQueuedWork(t *testing.T) {
	l := New()
	count := 0
	for i := 0; i < 5; i++ {
		l.Post(func() { count++ })
	}
	l.Run()
	require.Equal(t, 5, count)
	require.False(t, l.RunOne())
}

func TestPostDelayedFiresOnlyOnceDue(t *testing.T) {
	l := New()
	fired := false
	l.PostDelayed(10*time.Millisecond, func() { fired = true })
	require.False(t, l.RunOne())
	require.False(t, fired)
	time.Sleep(15 * time.Millisecond)
	require.True(t, l.RunOne())
	require.True(t, fired)
}

func TestPostRejectsOnceAtCapacity(t *testing.T) {
	l := NewWithCapacity(1)
	_, err := l.Post(func() {})
	require.NoError(t, err)
	_, err = l.Post(func() {})
	require.Error(t, err)
}

func TestResolvePromiseSchedulesThenCallbackAsMicrotask(t *testing.T) {
	l := New()
	p := values.NewPendingPromise()
	got := values.Undefined
	Then(l, p, values.FromNative(&values.NativeFunction{Name: "cb", Fn: func(_ *values.Object, args []values.Value) (values.Value, error) {
		got = args[0]
		return values.Undefined, nil
	}}), values.Undefined)
	ResolvePromise(l, p, values.Number(7))
	l.drainMicrotasks()
	require.Equal(t, 7.0, got.Num)
}

func TestCatchRunsOnRejection(t *testing.T) {
	l := New()
	p := values.NewPendingPromise()
	var reason values.Value
	Catch(l, p, values.FromNative(&values.NativeFunction{Name: "cb", Fn: func(_ *values.Object, args []values.Value) (values.Value, error) {
		reason = args[0]
		return values.Undefined, nil
	}}))
	RejectPromise(l, p, values.String("boom"))
	l.drainMicrotasks()
	require.Equal(t, "boom", reason.Str)
}
