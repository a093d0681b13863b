package eventloop

import "github.com/ardar-lang/ardar/values"

// invoke calls a then/catch/finally callback. Native functions are called
// directly; closures go through values.Invoke (set by package vm at
// startup) since calling a compiled closure needs the VM's frame machinery,
// which this package cannot import directly — same cycle break as
// Array.reduce.
func invoke(cb values.Value, arg values.Value) (values.Value, error) {
	if cb.Kind == values.KindNativeFunction {
		return cb.AsNative().Fn(nil, []values.Value{arg})
	}
	return values.Invoke(cb, nil, []values.Value{arg})
}

// ResolvePromise settles p with v and schedules its queued resolve
// callbacks as microtasks: the event loop schedules cb(value).
func ResolvePromise(l *Loop, p *values.Promise, v values.Value) {
	for _, cb := range p.Resolve(v) {
		cb := cb
		l.PostMicrotask(func() { cb(v) })
	}
}

// RejectPromise settles p as rejected with reason and schedules its queued
// reject callbacks as microtasks.
func RejectPromise(l *Loop, p *values.Promise, reason values.Value) {
	for _, cb := range p.Reject(reason) {
		cb := cb
		l.PostMicrotask(func() { cb(reason) })
	}
}

// Then registers onResolve/onReject against p and returns a new promise
// settled by whichever callback runs, chaining through a thrown/returned
// value.
func Then(l *Loop, p *values.Promise, onResolve, onReject values.Value) *values.Promise {
	result := values.NewPendingPromise()

	settle := func(cb values.Value, v values.Value, onMissingReject bool) {
		if !cb.Callable() {
			if onMissingReject {
				RejectPromise(l, result, v)
			} else {
				ResolvePromise(l, result, v)
			}
			return
		}
		ret, err := invoke(cb, v)
		if err != nil {
			RejectPromise(l, result, values.String(err.Error()))
			return
		}
		ResolvePromise(l, result, ret)
	}

	onSettleResolve := func(v values.Value) { settle(onResolve, v, false) }
	onSettleReject := func(v values.Value) { settle(onReject, v, true) }

	immediate, val := p.OnSettle(onSettleResolve, onSettleReject)
	for _, cb := range immediate {
		cb, val := cb, val
		l.PostMicrotask(func() { cb(val) })
	}
	return result
}

// Catch is `then(undefined, onReject)`.
func Catch(l *Loop, p *values.Promise, onReject values.Value) *values.Promise {
	return Then(l, p, values.Undefined, onReject)
}

// Finally runs onFinally on settlement (ignoring its return value) and
// passes the original value/reason through unchanged.
func Finally(l *Loop, p *values.Promise, onFinally values.Value) *values.Promise {
	run := func(v values.Value) (values.Value, error) {
		if onFinally.Callable() {
			if _, err := invoke(onFinally, values.Undefined); err != nil {
				return values.Undefined, err
			}
		}
		return v, nil
	}
	result := values.NewPendingPromise()
	onResolve := func(v values.Value) {
		if passthrough, err := run(v); err != nil {
			RejectPromise(l, result, values.String(err.Error()))
		} else {
			ResolvePromise(l, result, passthrough)
		}
	}
	onReject := func(v values.Value) {
		if _, err := run(v); err != nil {
			RejectPromise(l, result, values.String(err.Error()))
		} else {
			RejectPromise(l, result, v)
		}
	}
	immediate, val := p.OnSettle(onResolve, onReject)
	for _, cb := range immediate {
		cb, val := cb, val
		l.PostMicrotask(func() { cb(val) })
	}
	return result
}
