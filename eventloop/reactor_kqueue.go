//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package eventloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueueReactor backs the reactor interface on BSD-family kernels.
type kqueueReactor struct {
	fd      int
	onRead  map[int]func()
	onWrite map[int]func()
}

func newReactor() reactor {
	fd, err := unix.Kqueue()
	if err != nil {
		return noopReactor{}
	}
	return &kqueueReactor{fd: fd, onRead: map[int]func(){}, onWrite: map[int]func(){}}
}

func (r *kqueueReactor) add(fd int, onReadable, onWritable func()) error {
	changes := []unix.Kevent_t{}
	if onReadable != nil {
		r.onRead[fd] = onReadable
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	if onWritable != nil {
		r.onWrite[fd] = onWritable
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(r.fd, changes, nil, nil)
	return err
}

func (r *kqueueReactor) remove(fd int) {
	delete(r.onRead, fd)
	delete(r.onWrite, fd)
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	unix.Kevent(r.fd, changes, nil, nil)
}

func (r *kqueueReactor) poll(timeout time.Duration) bool {
	if len(r.onRead) == 0 && len(r.onWrite) == 0 {
		if timeout > 0 {
			time.Sleep(timeout)
		}
		return false
	}
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	events := make([]unix.Kevent_t, 16)
	n, err := unix.Kevent(r.fd, nil, events, &ts)
	if err != nil || n == 0 {
		return false
	}
	fired := false
	for _, ev := range events[:n] {
		fd := int(ev.Ident)
		switch ev.Filter {
		case unix.EVFILT_READ:
			if cb, ok := r.onRead[fd]; ok {
				cb()
				fired = true
			}
		case unix.EVFILT_WRITE:
			if cb, ok := r.onWrite[fd]; ok {
				cb()
				fired = true
			}
		}
	}
	return fired
}

func (r *kqueueReactor) close() error { return unix.Close(r.fd) }
