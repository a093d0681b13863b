package compiler

import (
	"github.com/ardar-lang/ardar/ast"
	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/errors"
	"github.com/ardar-lang/ardar/values"
)

// newChild spawns a compiler for a nested function/method body, sharing the
// module and import state with its parent but starting a fresh register
// file and local scope.
func newChild(parent *Compiler, name string) *Compiler {
	ch := chunk.New(name)
	idx := parent.module.AddChunk(ch)
	return &Compiler{
		parent:     parent,
		module:     parent.module,
		chunk:      ch,
		chunkIndex: idx,
		source:     parent.source,
		basePath:   parent.basePath,
		imported:   parent.imported,
		importer:   parent.importer,
	}
}

func (c *Compiler) compileFunctionDeclaration(s *ast.FunctionDeclaration) {
	destReg := c.compileFunctionLike(s.Name, s.Params, s.Body, s.IsAsync)
	c.bindName(s.Name, destReg, s.Pos())
}

// bindName stores valueReg under name as a global (top level) or local
// binding, used for function and class declarations alike.
func (c *Compiler) bindName(name string, valueReg uint8, pos errors.Position) {
	if c.parent == nil && c.scopeDepth == 0 {
		c.root().globals[name] = values.BindVar
		c.emit(chunk.OpCreateGlobalVar, valueReg, c.constant(values.String(name)), 0)
		return
	}
	reg := c.declareBinding(values.BindVar, name, pos)
	if reg != valueReg {
		c.emit(chunk.OpMove, reg, valueReg, 0)
	}
}

// compileFunctionLike compiles a function or arrow body into its own
// chunk and emits CreateClosure in the current chunk, recording the
// upvalue descriptors the VM needs to bind at call time.
func (c *Compiler) compileFunctionLike(name string, params []ast.Param, body *ast.Block, isAsync bool) uint8 {
	child := newChild(c, functionChunkName(name))
	child.classCtx = c.classCtx
	child.chunk.Arity = len(params)

	for _, p := range params {
		reg := child.declareBinding(values.BindVar, p.Name, errors.Position{})
		if p.Default != nil {
			undef := child.allocReg()
			child.emit(chunk.OpLoadConst, undef, child.constant(values.Undefined), 0)
			isUndef := child.allocReg()
			child.emit(chunk.OpStrictEqual, isUndef, reg, undef)
			skip := child.emitJump(chunk.OpJumpIfFalse, isUndef)
			defReg := child.compileExpression(p.Default)
			child.emit(chunk.OpMove, reg, defReg, 0)
			child.patchJump(skip)
		}
	}
	for _, stmt := range body.Body {
		child.compileStatement(stmt)
	}
	child.emitImplicitReturn()

	fn := &values.FunctionObject{
		ChunkIndex:   child.chunkIndex,
		Arity:        len(params),
		Name:         name,
		UpvaluesSize: len(child.upvalues),
		IsAsync:      isAsync,
	}
	constIdx := c.constant(values.FromFunctionRef(fn))
	dest := c.allocReg()
	insIdx := c.emit(chunk.OpCreateClosure, dest, constIdx, 0)

	descs := make([]chunk.UpvalueDescriptor, len(child.upvalues))
	for i, u := range child.upvalues {
		descs[i] = chunk.UpvalueDescriptor{IsLocal: u.isLocal, Index: u.index}
	}
	c.chunk.Upvalues[insIdx] = descs
	return dest
}

func functionChunkName(name string) string {
	if name == "" {
		return "<anonymous>"
	}
	return name
}
