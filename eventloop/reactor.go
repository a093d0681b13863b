package eventloop

import "time"

// reactor multiplexes socket readiness notifications behind one interface so
// Loop itself stays platform-agnostic; kqueue backs darwin/bsd, epoll backs
// linux. There is no wake pipe: poll returns early only for fds registered
// through add.
type reactor interface {
	add(fd int, onReadable, onWritable func()) error
	remove(fd int)
	// poll blocks up to timeout waiting for readiness, firing callbacks for
	// any fd that became ready, and reports whether anything fired.
	poll(timeout time.Duration) bool
	close() error
}

// noopReactor is used on platforms without a kqueue/epoll implementation
// wired in; socket builtins aren't exposed to script code, so the reactor
// only needs to exist to keep Loop's shape uniform across platforms — it
// never actually has an fd registered in practice.
type noopReactor struct{}

func (noopReactor) add(int, func(), func()) error { return nil }
func (noopReactor) remove(int)                    {}
func (noopReactor) poll(time.Duration) bool        { return false }
func (noopReactor) close() error                   { return nil }
