package compiler

import (
	"github.com/ardar-lang/ardar/ast"
	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/errors"
	"github.com/ardar-lang/ardar/values"
)

type breakable struct {
	breaks []int
}

func (c *Compiler) pushBreakable() *breakable {
	b := &breakable{}
	c.breakables = append(c.breakables, b)
	return b
}

func (c *Compiler) popBreakable() *breakable {
	b := c.breakables[len(c.breakables)-1]
	c.breakables = c.breakables[:len(c.breakables)-1]
	return b
}

func (c *Compiler) patchBreaks(b *breakable) {
	for _, idx := range b.breaks {
		c.patchJump(idx)
	}
}

func bindKind(k ast.BindingKind) values.BindingKind {
	switch k {
	case ast.BindLet:
		return values.BindLet
	case ast.BindConst:
		return values.BindConst
	default:
		return values.BindVar
	}
}

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Block:
		c.beginScope()
		for _, inner := range s.Body {
			c.compileStatement(inner)
		}
		c.endScope()
	case *ast.VarDeclaration:
		c.compileVarDeclaration(s)
	case *ast.ExpressionStatement:
		c.compileExpression(s.Expr)
	case *ast.IfStatement:
		c.compileIf(s)
	case *ast.WhileStatement:
		c.compileWhile(s)
	case *ast.DoWhileStatement:
		c.compileDoWhile(s)
	case *ast.ForStatement:
		c.compileFor(s)
	case *ast.ForInStatement:
		c.compileForIn(s)
	case *ast.ForOfStatement:
		c.compileForOf(s)
	case *ast.BreakStatement:
		c.compileBreak(s)
	case *ast.ContinueStatement:
		c.compileContinue(s)
	case *ast.ReturnStatement:
		c.compileReturn(s)
	case *ast.ThrowStatement:
		r := c.compileExpression(s.Argument)
		c.emit(chunk.OpThrow, r, 0, 0)
	case *ast.TryStatement:
		c.compileTry(s)
	case *ast.SwitchStatement:
		c.compileSwitch(s)
	case *ast.FunctionDeclaration:
		c.compileFunctionDeclaration(s)
	case *ast.ClassDeclaration:
		c.compileClassDeclaration(s)
	case *ast.ImportStatement:
		c.compileImport(s)
	default:
		c.fail(stmt.Pos(), "unsupported statement")
	}
}

func (c *Compiler) compileVarDeclaration(s *ast.VarDeclaration) {
	var initReg uint8
	if s.Init != nil {
		initReg = c.compileExpression(s.Init)
	} else {
		initReg = c.allocReg()
		c.emit(chunk.OpLoadConst, initReg, c.constant(values.Undefined), 0)
	}
	kind := bindKind(s.Kind)
	if kind == values.BindVar && c.parent == nil && c.scopeDepth == 0 {
		c.root().globals[s.Name] = kind
		nameConst := c.constant(values.String(s.Name))
		c.emit(chunk.OpCreateGlobalVar, initReg, nameConst, 0)
		return
	}
	reg := c.declareBinding(kind, s.Name, s.Pos())
	if reg != initReg {
		c.emit(chunk.OpMove, reg, initReg, 0)
	}
}

func (c *Compiler) compileIf(s *ast.IfStatement) {
	testReg := c.compileExpression(s.Test)
	elseJump := c.emitJump(chunk.OpJumpIfFalse, testReg)
	c.compileStatement(s.Consequent)
	if s.Alternate != nil {
		endJump := c.emitJump(chunk.OpJump, 0)
		c.patchJump(elseJump)
		c.compileStatement(s.Alternate)
		c.patchJump(endJump)
	} else {
		c.patchJump(elseJump)
	}
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) {
	loopStart := c.chunk.Len()
	testReg := c.compileExpression(s.Test)
	exitJump := c.emitJump(chunk.OpJumpIfFalse, testReg)
	lc := &loopContext{loopStart: loopStart}
	c.loops = append(c.loops, lc)
	b := c.pushBreakable()
	c.compileStatement(s.Body)
	for _, idx := range lc.continues {
		c.patchJump(idx)
	}
	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	c.patchBreaks(b)
	c.popBreakable()
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *Compiler) compileDoWhile(s *ast.DoWhileStatement) {
	loopStart := c.chunk.Len()
	lc := &loopContext{loopStart: loopStart}
	c.loops = append(c.loops, lc)
	b := c.pushBreakable()
	c.compileStatement(s.Body)
	for _, idx := range lc.continues {
		c.patchJump(idx)
	}
	testReg := c.compileExpression(s.Test)
	skip := c.emitJump(chunk.OpJumpIfFalse, testReg)
	c.emitLoop(loopStart)
	c.patchJump(skip)
	c.patchBreaks(b)
	c.popBreakable()
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *Compiler) compileFor(s *ast.ForStatement) {
	c.beginScope()
	switch init := s.Init.(type) {
	case *ast.VarDeclaration:
		c.compileVarDeclaration(init)
	case *ast.ExpressionStatement:
		c.compileExpression(init.Expr)
	}
	loopStart := c.chunk.Len()
	var exitJump int
	hasTest := s.Test != nil
	if hasTest {
		testReg := c.compileExpression(s.Test)
		exitJump = c.emitJump(chunk.OpJumpIfFalse, testReg)
	}
	lc := &loopContext{loopStart: loopStart}
	c.loops = append(c.loops, lc)
	b := c.pushBreakable()
	c.compileStatement(s.Body)
	for _, idx := range lc.continues {
		c.patchJump(idx)
	}
	if s.Update != nil {
		c.compileExpression(s.Update)
	}
	c.emitLoop(loopStart)
	if hasTest {
		c.patchJump(exitJump)
	}
	c.patchBreaks(b)
	c.popBreakable()
	c.loops = c.loops[:len(c.loops)-1]
	c.endScope()
}

// compileForIn evaluates the target once, materialises keys via EnumKeys,
// and iterates by index with a bounds check.
func (c *Compiler) compileForIn(s *ast.ForInStatement) {
	c.beginScope()
	objReg := c.compileExpression(s.Object)
	keysReg := c.allocReg()
	c.emit(chunk.OpEnumKeys, keysReg, objReg, 0)
	c.compileIndexedIteration(keysReg, s.Kind, s.Name, s.Body, true)
	c.endScope()
}

// compileForOf iterates 0..length over an array-like iterable.
func (c *Compiler) compileForOf(s *ast.ForOfStatement) {
	c.beginScope()
	iterReg := c.compileExpression(s.Iterable)
	c.compileIndexedIteration(iterReg, s.Kind, s.Name, s.Body, false)
	c.endScope()
}

// compileIndexedIteration shares the index/length/bounds-check loop shape
// between for-in (iterating a materialised key array) and for-of (iterating
// the iterable's own numeric slots directly).
func (c *Compiler) compileIndexedIteration(containerReg uint8, kind ast.BindingKind, name string, body ast.Statement, isForIn bool) {
	idxReg := c.allocReg()
	c.emit(chunk.OpLoadConst, idxReg, c.constant(values.Number(0)), 0)
	lenReg := c.allocReg()
	c.emit(chunk.OpGetObjectLength, lenReg, containerReg, 0)

	loopStart := c.chunk.Len()
	condReg := c.allocReg()
	c.emit(chunk.OpLessThan, condReg, idxReg, lenReg)
	exitJump := c.emitJump(chunk.OpJumpIfFalse, condReg)

	lc := &loopContext{loopStart: loopStart}
	c.loops = append(c.loops, lc)
	b := c.pushBreakable()

	c.beginScope()
	elemReg := c.allocReg()
	c.emit(chunk.OpGetPropertyDynamic, elemReg, containerReg, idxReg)
	loopVarReg := c.declareBinding(bindKind(kind), name, errors.Position{})
	if loopVarReg != elemReg {
		c.emit(chunk.OpMove, loopVarReg, elemReg, 0)
	}
	_ = isForIn
	c.compileStatement(body)
	c.endScope()

	for _, idx := range lc.continues {
		c.patchJump(idx)
	}
	c.emit(chunk.OpIncrement, idxReg, idxReg, 0)
	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	c.patchBreaks(b)
	c.popBreakable()
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *Compiler) compileBreak(s *ast.BreakStatement) {
	if len(c.breakables) == 0 {
		c.fail(s.Pos(), "illegal break outside loop or switch")
		return
	}
	b := c.breakables[len(c.breakables)-1]
	idx := c.emitJump(chunk.OpJump, 0)
	b.breaks = append(b.breaks, idx)
}

func (c *Compiler) compileContinue(s *ast.ContinueStatement) {
	if len(c.loops) == 0 {
		c.fail(s.Pos(), "illegal continue outside loop")
		return
	}
	lc := c.loops[len(c.loops)-1]
	idx := c.emitJump(chunk.OpJump, 0)
	lc.continues = append(lc.continues, idx)
}

func (c *Compiler) compileReturn(s *ast.ReturnStatement) {
	var reg uint8
	if s.Argument != nil {
		reg = c.compileExpression(s.Argument)
	} else {
		reg = c.allocReg()
		c.emit(chunk.OpLoadConst, reg, c.constant(values.Undefined), 0)
	}
	c.emit(chunk.OpReturn, reg, 0, 0)
}

// compileTry lowers try/catch/finally into one Try instruction with two
// instruction-index operands. catch_ofs/finally_ofs are zero when absent.
func (c *Compiler) compileTry(s *ast.TryStatement) {
	tryIdx := c.emit(chunk.OpTry, 0, 0, 0)

	c.beginScope()
	for _, inner := range s.Block.Body {
		c.compileStatement(inner)
	}
	c.endScope()
	c.emit(chunk.OpEndTry, 0, 0, 0)
	skipCatch := c.emitJump(chunk.OpJump, 0)

	catchStart := 0
	catchReg := uint8(0)
	if s.Handler != nil {
		catchStart = c.chunk.Len()
		c.beginScope()
		if s.Handler.Param != "" {
			catchReg = c.declareBinding(values.BindLet, s.Handler.Param, s.Handler.Pos())
		} else {
			catchReg = c.allocReg()
		}
		c.emit(chunk.OpLoadExceptionValue, catchReg, 0, 0)
		for _, inner := range s.Handler.Body.Body {
			c.compileStatement(inner)
		}
		c.endScope()
	}

	finallyStart := 0
	if s.Finally != nil {
		finallyStart = c.chunk.Len()
		c.patchJump(skipCatch)
		c.beginScope()
		for _, inner := range s.Finally.Body {
			c.compileStatement(inner)
		}
		c.endScope()
	} else {
		c.patchJump(skipCatch)
	}
	c.emit(chunk.OpEndFinally, 0, 0, 0)

	if catchStart > 255 || finallyStart > 255 {
		c.fail(s.Pos(), "try handler starts past instruction 255 of its chunk")
	}
	c.chunk.Code[tryIdx].A = uint8(catchStart)
	c.chunk.Code[tryIdx].B = uint8(finallyStart)
	c.chunk.Code[tryIdx].C = catchReg
}

// compileSwitch lowers to a chain of equality tests against the
// discriminant. Fall-through between cases lacking a `break` is not
// modelled (see DESIGN.md): each case implicitly exits the switch after its
// body, which covers the common case of a `break` ending each arm.
func (c *Compiler) compileSwitch(s *ast.SwitchStatement) {
	discReg := c.compileExpression(s.Discriminant)
	b := c.pushBreakable()
	var prevFalseJump = -1
	for _, cs := range s.Cases {
		if prevFalseJump >= 0 {
			c.patchJump(prevFalseJump)
			prevFalseJump = -1
		}
		if cs.Test != nil {
			testReg := c.compileExpression(cs.Test)
			eqReg := c.allocReg()
			c.emit(chunk.OpEqual, eqReg, discReg, testReg)
			prevFalseJump = c.emitJump(chunk.OpJumpIfFalse, eqReg)
		}
		c.beginScope()
		for _, inner := range cs.Body {
			c.compileStatement(inner)
		}
		c.endScope()
		idx := c.emitJump(chunk.OpJump, 0)
		b.breaks = append(b.breaks, idx)
	}
	if prevFalseJump >= 0 {
		c.patchJump(prevFalseJump)
	}
	c.patchBreaks(b)
	c.popBreakable()
}

// compileImport resolves the path, dedups against already-loaded paths, and
// compiles the imported source in-place into the current chunk.
func (c *Compiler) compileImport(s *ast.ImportStatement) {
	root := c.root()
	if root.imported[s.Path] {
		return
	}
	root.imported[s.Path] = true
	if root.importer == nil {
		return
	}
	prog, err := root.importer.Load(root.basePath, s.Path)
	if err != nil {
		c.fail(s.Pos(), "import '"+s.Path+"': "+err.Error())
		return
	}
	for _, inner := range prog.Body {
		c.compileStatement(inner)
	}
}
