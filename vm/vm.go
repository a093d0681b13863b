// Package vm executes a chunk.Module: call frames, the register file, the
// argument stack, the try stack, and the dispatch loop over the opcode set
// chunk.Op names.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/eventloop"
	"github.com/ardar-lang/ardar/internal/config"
	"github.com/ardar-lang/ardar/values"
)

func init() {
	// Break the values<->vm import cycle: Array.reduce (and any other
	// native that needs to call back into script code) invokes through
	// this hook rather than importing vm directly.
	values.Invoke = func(fn values.Value, this *values.Object, args []values.Value) (values.Value, error) {
		return defaultVM.Call(fn, this, args)
	}
}

// tryFrame tracks one active try region; offsets are absolute instruction
// indices within the owning frame's chunk.
type tryFrame struct {
	catchIP    int
	finallyIP  int
	catchReg   uint8
	hasCatch   bool
	hasFinally bool
}

// frame is one call's register file and bytecode cursor.
type frame struct {
	closure *values.Closure
	chnk    *chunk.Chunk
	ip      int
	regs    []values.Value
	args    []values.Value // pending PushArg operands, drained by the next Call*
	tries   []tryFrame
	this    *values.Object

	currentException values.Value
	pendingRethrow   bool
}

func newFrame(cl *values.Closure, c *chunk.Chunk) *frame {
	size := c.MaxLocals
	if size < 8 {
		size = 8
	}
	f := &frame{closure: cl, chnk: c, regs: make([]values.Value, size)}
	for i := range f.regs {
		f.regs[i] = values.Undefined
	}
	if cl != nil {
		f.this = cl.BoundThis
	}
	return f
}

func (f *frame) get(r uint8) values.Value  { return f.regs[r] }
func (f *frame) set(r uint8, v values.Value) { f.regs[r] = v }

// ErrUncaught wraps a script-level thrown value that reached the top frame
// uncaught.
type ErrUncaught struct{ Value values.Value }

func (e *ErrUncaught) Error() string { return "uncaught exception: " + e.Value.ToString() }

// VM executes modules against a single global namespace and a shared event
// loop.
type VM struct {
	module  *chunk.Module
	globals map[string]values.Value
	frames  []*frame
	Stdout  io.Writer
	Loop    *eventloop.Loop
	Config  config.Config
}

var defaultVM *VM

// New creates a VM bound to module, with its own global namespace and event
// loop, using config.Default() for its call-depth/queue tunables.
func New(module *chunk.Module) *VM {
	cfg := config.Default()
	v := &VM{
		module:  module,
		globals: make(map[string]values.Value),
		Stdout:  os.Stdout,
		Loop:    eventloop.NewWithCapacity(cfg.QueueCapacity),
		Config:  cfg,
	}
	defaultVM = v
	return v
}

// Globals exposes the global namespace so builtins can be installed before
// Run.
func (v *VM) Globals() map[string]values.Value { return v.globals }

// Writer returns the stream console.log/print write to, satisfying
// builtins.Host.
func (v *VM) Writer() io.Writer { return v.Stdout }

// LoadModule swaps in a new compiled module while keeping globals, the
// event loop and Config intact, letting a REPL compile and run one line at
// a time against a persistent namespace.
func (v *VM) LoadModule(m *chunk.Module) { v.module = m }

// EventLoop exposes the VM's loop so host builtins (Promise.resolve/reject)
// can schedule settlement callbacks, satisfying builtins.Host.
func (v *VM) EventLoop() *eventloop.Loop { return v.Loop }

// Run executes the module's entry chunk to completion, draining the event
// loop afterward so queued microtasks and timers still fire.
func (v *VM) Run() (values.Value, error) {
	entry := v.module.Chunk(v.module.EntryChunkIndex)
	cl := &values.Closure{Function: &values.FunctionObject{ChunkIndex: v.module.EntryChunkIndex, Name: "<entry>"}}
	result, err := v.runFrame(newFrame(cl, entry))
	if err != nil {
		return values.Undefined, err
	}
	v.Loop.Run()
	return result, nil
}

// Call invokes an arbitrary callable value with args, used by native
// functions that need to invoke a script callback via values.Invoke.
// Compiled Call instructions go through doCall instead.
func (v *VM) Call(fn values.Value, this *values.Object, args []values.Value) (values.Value, error) {
	switch fn.Kind {
	case values.KindNativeFunction:
		nf := fn.AsNative()
		return nf.Fn(this, args)
	case values.KindClosure:
		cl := fn.AsClosure()
		c := v.module.Chunk(cl.Function.ChunkIndex)
		if c == nil {
			return values.Undefined, fmt.Errorf("call to closure with unknown chunk")
		}
		if c.MaxLocals > v.Config.MaxRegisters {
			return values.Undefined, fmt.Errorf("chunk %q requests %d registers, exceeds max %d", c.Name, c.MaxLocals, v.Config.MaxRegisters)
		}
		f := newFrame(cl, c)
		if this != nil {
			f.this = this
		}
		for i, a := range args {
			if i < len(f.regs) {
				f.regs[i] = a
			}
		}
		return v.runFrame(f)
	default:
		return values.Undefined, fmt.Errorf("value of kind %s is not callable", fn.Kind)
	}
}

func (v *VM) currentFrame() *frame { return v.frames[len(v.frames)-1] }

// runFrame pushes f and dispatches until it returns or throws uncaught. An
// Await inside it blocks in place rather than suspending the frame.
func (v *VM) runFrame(f *frame) (values.Value, error) {
	if len(v.frames) >= v.Config.MaxCallDepth {
		return values.Undefined, fmt.Errorf("call stack exceeds max depth %d", v.Config.MaxCallDepth)
	}
	v.frames = append(v.frames, f)
	defer func() { v.frames = v.frames[:len(v.frames)-1] }()

	for f.ip < len(f.chnk.Code) {
		ins := f.chnk.Code[f.ip]
		result, thrown, ret, err := v.step(f, ins)
		if err != nil {
			return values.Undefined, err
		}
		if thrown != nil {
			if handled := v.handleThrow(f, *thrown); !handled {
				return values.Undefined, &ErrUncaught{Value: *thrown}
			}
			continue
		}
		if ret {
			return result, nil
		}
		f.ip++
	}
	return values.Undefined, nil
}

// handleThrow walks f's try stack looking for a handler; returns false if
// the exception must propagate out of the frame entirely.
func (v *VM) handleThrow(f *frame, thrown values.Value) bool {
	for len(f.tries) > 0 {
		t := f.tries[len(f.tries)-1]
		f.tries = f.tries[:len(f.tries)-1]
		if t.hasCatch {
			f.set(t.catchReg, thrown)
			f.currentException = thrown
			f.ip = t.catchIP
			return true
		}
		if t.hasFinally {
			f.currentException = thrown
			f.pendingRethrow = true
			f.ip = t.finallyIP
			return true
		}
	}
	return false
}
