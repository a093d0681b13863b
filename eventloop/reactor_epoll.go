//go:build linux

package eventloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollReactor backs the reactor interface on Linux, the epoll counterpart
// to reactor_kqueue.go's BSD implementation.
type epollReactor struct {
	fd      int
	onRead  map[int]func()
	onWrite map[int]func()
}

func newReactor() reactor {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return noopReactor{}
	}
	return &epollReactor{fd: fd, onRead: map[int]func(){}, onWrite: map[int]func(){}}
}

func (r *epollReactor) events(fd int) uint32 {
	var ev uint32
	if _, ok := r.onRead[fd]; ok {
		ev |= unix.EPOLLIN
	}
	if _, ok := r.onWrite[fd]; ok {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (r *epollReactor) add(fd int, onReadable, onWritable func()) error {
	_, existed := r.onRead[fd]
	_, existedW := r.onWrite[fd]
	if onReadable != nil {
		r.onRead[fd] = onReadable
	}
	if onWritable != nil {
		r.onWrite[fd] = onWritable
	}
	op := unix.EPOLL_CTL_ADD
	if existed || existedW {
		op = unix.EPOLL_CTL_MOD
	}
	return unix.EpollCtl(r.fd, op, fd, &unix.EpollEvent{Events: r.events(fd), Fd: int32(fd)})
}

func (r *epollReactor) remove(fd int) {
	delete(r.onRead, fd)
	delete(r.onWrite, fd)
	unix.EpollCtl(r.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (r *epollReactor) poll(timeout time.Duration) bool {
	if len(r.onRead) == 0 && len(r.onWrite) == 0 {
		if timeout > 0 {
			time.Sleep(timeout)
		}
		return false
	}
	ms := int(timeout.Milliseconds())
	events := make([]unix.EpollEvent, 16)
	n, err := unix.EpollWait(r.fd, events, ms)
	if err != nil || n <= 0 {
		return false
	}
	fired := false
	for _, ev := range events[:n] {
		fd := int(ev.Fd)
		if ev.Events&unix.EPOLLIN != 0 {
			if cb, ok := r.onRead[fd]; ok {
				cb()
				fired = true
			}
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			if cb, ok := r.onWrite[fd]; ok {
				cb()
				fired = true
			}
		}
	}
	return fired
}

func (r *epollReactor) close() error { return unix.Close(r.fd) }
