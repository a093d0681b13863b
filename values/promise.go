package values

// PromiseState is one of the three states a Promise transitions through
// exactly once.
type PromiseState int

const (
	PromisePending PromiseState = iota
	PromiseResolved
	PromiseRejected
)

// Promise holds settlement state and the two callback queues drained by the
// event loop on resolve/reject. The eventloop package owns scheduling;
// this type is the shared data record both it and the VM manipulate.
type Promise struct {
	State  PromiseState
	Value  Value
	Reason Value

	OnResolve []func(Value)
	OnReject  []func(Value)
}

func NewPendingPromise() *Promise {
	return &Promise{State: PromisePending}
}

// Resolve transitions pending → resolved exactly once; returns the callbacks
// to run (the caller — the event loop — schedules them as tasks).
func (p *Promise) Resolve(v Value) []func(Value) {
	if p.State != PromisePending {
		return nil
	}
	p.State = PromiseResolved
	p.Value = v
	cbs := p.OnResolve
	p.OnResolve, p.OnReject = nil, nil
	return cbs
}

// Reject transitions pending → rejected exactly once.
func (p *Promise) Reject(reason Value) []func(Value) {
	if p.State != PromisePending {
		return nil
	}
	p.State = PromiseRejected
	p.Reason = reason
	cbs := p.OnReject
	p.OnResolve, p.OnReject = nil, nil
	return cbs
}

// OnSettle registers callbacks to run once the promise settles, or
// immediately (via the returned slice) if it already has.
func (p *Promise) OnSettle(onResolve, onReject func(Value)) (immediate []func(Value), immediateValue Value) {
	switch p.State {
	case PromiseResolved:
		return []func(Value){onResolve}, p.Value
	case PromiseRejected:
		return []func(Value){onReject}, p.Reason
	default:
		if onResolve != nil {
			p.OnResolve = append(p.OnResolve, onResolve)
		}
		if onReject != nil {
			p.OnReject = append(p.OnReject, onReject)
		}
		return nil, Undefined
	}
}
