// Package compiler lowers an ast.Program into a chunk.Module: the scope and
// binding resolver, statement lowering, and expression lowering.
package compiler

import (
	"github.com/ardar-lang/ardar/ast"
	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/errors"
	"github.com/ardar-lang/ardar/parser"
	"github.com/ardar-lang/ardar/values"
)

type local struct {
	name       string
	depth      int
	reg        uint8
	kind       values.BindingKind
	isCaptured bool
}

type upvalueDesc struct {
	isLocal bool
	index   uint8
	name    string
	kind    values.BindingKind
}

type fieldInfo struct {
	visibility ast.Visibility
	kind       values.BindingKind
	isStatic   bool
}

type classInfo struct {
	name      string
	superName string
	fields    map[string]fieldInfo
	inCtor    bool
}

type loopContext struct {
	loopStart int
	breaks    []int
	continues []int
}

// Importer loads and parses the module at path relative to fromPath,
// returning its statements; it is the compiler's external collaborator for
// `import`.
type Importer interface {
	Load(fromPath, path string) (*ast.Program, error)
}

// fileImporter resolves paths via the parser package against the OS
// filesystem; callers needing a different resolution strategy (tests,
// virtual filesystems) supply their own Importer.
type fileImporter struct{}

func (fileImporter) Load(fromPath, path string) (*ast.Program, error) {
	return parser.ParseProgramFile(fromPath, path)
}

// Compiler compiles one function body (or the top-level script) into a
// chunk, with a pointer to the enclosing compiler for upvalue resolution.
type Compiler struct {
	parent     *Compiler
	module     *chunk.Module
	chunk      *chunk.Chunk
	chunkIndex uint32

	locals     []*local
	scopeDepth int
	upvalues   []upvalueDesc
	nextReg    int

	classCtx    *classInfo
	loops       []*loopContext
	breakables  []*breakable

	globals map[string]values.BindingKind // only meaningful on the root compiler

	errs     errors.List
	source   string
	basePath string
	imported map[string]bool // shared across the whole compile, root-owned
	importer Importer
}

// New creates the root compiler for a top-level script.
func New(source string) *Compiler {
	c := &Compiler{
		module:   chunk.NewModule(),
		globals:  make(map[string]values.BindingKind),
		source:   source,
		imported: make(map[string]bool),
		importer: fileImporter{},
	}
	c.chunk = chunk.New("<entry>")
	c.module.AddChunk(c.chunk)
	return c
}

// SetImporter overrides the default filesystem importer (used by tests and
// embedding hosts that resolve modules differently).
func (c *Compiler) SetImporter(imp Importer) { c.importer = imp }

func (c *Compiler) root() *Compiler {
	cur := c
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Compile lowers prog into the compiler's module, returning the entry chunk
// index. Errors encountered abort before any partial module is considered
// usable.
func Compile(prog *ast.Program, source string) (*chunk.Module, uint32, error) {
	c := New(source)
	c.module.EntryChunkIndex = c.chunkIndex
	for _, stmt := range prog.Body {
		c.compileStatement(stmt)
	}
	c.emitImplicitReturn()
	if c.errs.HasErrors() {
		return nil, 0, c.errs
	}
	return c.module, c.chunkIndex, nil
}

func (c *Compiler) emitImplicitReturn() {
	if len(c.chunk.Code) > 0 && c.chunk.Code[len(c.chunk.Code)-1].Op == chunk.OpReturn {
		return
	}
	k := c.chunk.AddConstant(values.Undefined)
	reg := c.allocReg()
	c.emit(chunk.OpLoadConst, reg, uint8(k), 0)
	c.emit(chunk.OpReturn, reg, 0, 0)
}

// emitImplicitThisReturn is used for constructors, which return the
// receiver rather than Undefined when control falls off the end.
func (c *Compiler) emitImplicitThisReturn() {
	if len(c.chunk.Code) > 0 && c.chunk.Code[len(c.chunk.Code)-1].Op == chunk.OpReturn {
		return
	}
	reg := c.allocReg()
	c.emit(chunk.OpGetThis, reg, 0, 0)
	c.emit(chunk.OpReturn, reg, 0, 0)
}

func (c *Compiler) fail(pos errors.Position, msg string) {
	c.errs.Add(errors.NewResolutionError(msg, pos).WithSource(c.source))
}

// --- register & emission helpers ----------------------------------------

func (c *Compiler) allocReg() uint8 {
	if c.nextReg >= 255 {
		c.fail(errors.Position{}, "function exceeds 255 live registers")
		return 254
	}
	r := uint8(c.nextReg)
	c.nextReg++
	if c.nextReg > c.chunk.MaxLocals {
		c.chunk.MaxLocals = c.nextReg
	}
	return r
}

func (c *Compiler) emit(op chunk.Op, a, b, cc uint8) int {
	return c.chunk.Emit(chunk.Instruction{Op: op, A: a, B: b, C: cc})
}

func (c *Compiler) emitJump(op chunk.Op, a uint8) int {
	return c.emit(op, a, 0, 0) // patched later; offset packed into B,C
}

// patchJump records the distance from ins to the current code position into
// the instruction's B/C operands as a little-endian 16-bit forward offset.
func (c *Compiler) patchJump(ins int) {
	offset := len(c.chunk.Code) - ins - 1
	c.chunk.Code[ins].B = uint8(offset)
	c.chunk.Code[ins].C = uint8(offset >> 8)
}

// emitLoop emits a backward Loop instruction to start, with the offset
// packed into B,C the same way patchJump packs forward offsets.
func (c *Compiler) emitLoop(start int) {
	offset := len(c.chunk.Code) - start + 1
	c.emit(chunk.OpLoop, 0, uint8(offset), uint8(offset>>8))
}

func (c *Compiler) constant(v values.Value) uint8 {
	idx := c.chunk.AddConstant(v)
	if idx > 255 {
		c.fail(errors.Position{}, "constant pool exceeds 255 entries in one chunk")
		return 255
	}
	return uint8(idx)
}

// --- scope management -----------------------------------------------------

func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope closes upvalues captured from the departing scope. The stack
// VM's trailing "Pop for the rest" has no register-VM analogue (registers
// are not stack-allocated); only CloseUpvalue is emitted here, since the
// register-VM opcode set is authoritative.
func (c *Compiler) endScope() {
	depth := c.scopeDepth
	kept := c.locals[:0]
	for _, l := range c.locals {
		if l.depth == depth {
			if l.isCaptured {
				c.emit(chunk.OpCloseUpvalue, l.reg, 0, 0)
			}
			continue
		}
		kept = append(kept, l)
	}
	c.locals = kept
	c.scopeDepth--
}

// declareBinding creates a local (let/const at current depth) or, for var at
// top level, a global; var inside a function scope hoists to that
// function's own locals at depth 1.
func (c *Compiler) declareBinding(kind values.BindingKind, name string, pos errors.Position) uint8 {
	if kind == values.BindVar && c.parent == nil && c.scopeDepth == 0 {
		c.root().globals[name] = kind
		return 0
	}
	if kind == values.BindVar {
		for _, l := range c.locals {
			if l.name == name && l.depth == 1 {
				return l.reg
			}
		}
		reg := c.allocReg()
		c.locals = append(c.locals, &local{name: name, depth: 1, reg: reg, kind: kind})
		return reg
	}
	for _, l := range c.locals {
		if l.name == name && l.depth == c.scopeDepth {
			c.fail(pos, "duplicate declaration of '"+name+"' in the same scope")
			return l.reg
		}
	}
	reg := c.allocReg()
	c.locals = append(c.locals, &local{name: name, depth: c.scopeDepth, reg: reg, kind: kind})
	return reg
}

type resolution int

const (
	resNone resolution = iota
	resLocal
	resUpvalue
	resGlobal
	resField
)

// resolve implements the lookup order locals → class field → upvalue →
// globals. A field of the enclosing class reports resField; callers compile
// it as this.<name>.
func (c *Compiler) resolve(name string) (resolution, uint8, values.BindingKind) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return resLocal, c.locals[i].reg, c.locals[i].kind
		}
	}
	if _, ok := c.nearestFieldInfo(name); ok {
		return resField, 0, values.BindVar
	}
	if idx, kind, ok := c.resolveUpvalue(name); ok {
		return resUpvalue, idx, kind
	}
	if kind, ok := c.root().globals[name]; ok {
		_ = kind
		return resGlobal, 0, kind
	}
	return resNone, 0, values.BindVar
}

func (c *Compiler) resolveUpvalue(name string) (uint8, values.BindingKind, bool) {
	if c.parent == nil {
		return 0, values.BindVar, false
	}
	for i, l := range c.parent.locals {
		if l.name == name {
			c.parent.locals[i].isCaptured = true
			return c.addUpvalue(true, l.reg, name, l.kind), l.kind, true
		}
	}
	if idx, kind, ok := c.parent.resolveUpvalue(name); ok {
		return c.addUpvalue(false, idx, name, kind), kind, true
	}
	return 0, values.BindVar, false
}

func (c *Compiler) addUpvalue(isLocal bool, index uint8, name string, kind values.BindingKind) uint8 {
	for i, u := range c.upvalues {
		if u.isLocal == isLocal && u.index == index {
			return uint8(i)
		}
	}
	c.upvalues = append(c.upvalues, upvalueDesc{isLocal: isLocal, index: index, name: name, kind: kind})
	return uint8(len(c.upvalues) - 1)
}
