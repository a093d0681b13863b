package compiler

import (
	"github.com/ardar-lang/ardar/ast"
	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/errors"
	"github.com/ardar-lang/ardar/values"
)

// compileExpression lowers expr into a sequence of register operations,
// returning the register holding its result.
func (c *Compiler) compileExpression(expr ast.Expression) uint8 {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		r := c.allocReg()
		c.emit(chunk.OpLoadConst, r, c.constant(values.Number(e.Value)), 0)
		return r
	case *ast.StringLiteral:
		r := c.allocReg()
		c.emit(chunk.OpLoadConst, r, c.constant(values.String(e.Value)), 0)
		return r
	case *ast.BooleanLiteral:
		r := c.allocReg()
		c.emit(chunk.OpLoadConst, r, c.constant(values.Boolean(e.Value)), 0)
		return r
	case *ast.NullLiteral:
		r := c.allocReg()
		c.emit(chunk.OpLoadConst, r, c.constant(values.Null), 0)
		return r
	case *ast.UndefinedLiteral:
		r := c.allocReg()
		c.emit(chunk.OpLoadConst, r, c.constant(values.Undefined), 0)
		return r
	case *ast.ThisExpression:
		r := c.allocReg()
		c.emit(chunk.OpGetThis, r, 0, 0)
		return r
	case *ast.SuperExpression:
		r := c.allocReg()
		c.emit(chunk.OpGetParentObject, r, 0, 0)
		return r
	case *ast.Identifier:
		return c.compileIdentifier(e)
	case *ast.TemplateLiteral:
		return c.compileTemplateLiteral(e)
	case *ast.ArrayLiteral:
		return c.compileArrayLiteral(e)
	case *ast.ObjectLiteral:
		return c.compileObjectLiteral(e)
	case *ast.BinaryExpression:
		return c.compileBinary(e)
	case *ast.LogicalExpression:
		return c.compileLogical(e)
	case *ast.UnaryExpression:
		return c.compileUnary(e)
	case *ast.UpdateExpression:
		return c.compileUpdate(e)
	case *ast.AssignmentExpression:
		return c.compileAssignment(e)
	case *ast.ConditionalExpression:
		return c.compileConditional(e)
	case *ast.MemberExpression:
		return c.compileMember(e)
	case *ast.CallExpression:
		return c.compileCall(e)
	case *ast.SuperCallExpression:
		return c.compileSuperCall(e)
	case *ast.NewExpression:
		return c.compileNew(e)
	case *ast.FunctionExpression:
		return c.compileFunctionLike(e.Name, e.Params, e.Body, e.IsAsync)
	case *ast.ArrowFunctionExpression:
		return c.compileFunctionLike("", e.Params, e.Body, e.IsAsync)
	case *ast.AwaitExpression:
		argReg := c.compileExpression(e.Argument)
		r := c.allocReg()
		c.emit(chunk.OpAwait, r, argReg, 0)
		return r
	default:
		c.fail(expr.Pos(), "unsupported expression")
		return c.allocReg()
	}
}

// compileIdentifier resolves name through locals, then (inside a method) an
// implicit `this.<name>` class field, then upvalues and globals. A name that
// resolves nowhere is loaded from the globals by name at run time.
func (c *Compiler) compileIdentifier(id *ast.Identifier) uint8 {
	kind, slot, bkind := c.resolve(id.Name)
	switch kind {
	case resLocal:
		dest := c.allocReg()
		c.emit(loadLocalOp(bkind), dest, slot, 0)
		return dest
	case resUpvalue:
		dest := c.allocReg()
		c.emit(chunk.OpLoadUpvalue, dest, slot, 0)
		return dest
	case resGlobal:
		dest := c.allocReg()
		c.emit(loadGlobalOp(bkind), dest, c.constant(values.String(id.Name)), 0)
		return dest
	default:
		if fi, ok := c.nearestFieldInfo(id.Name); ok {
			dest := c.allocReg()
			c.emit(chunk.OpLoadThisProperty, dest, c.constant(values.String(id.Name)), 0)
			_ = fi
			return dest
		}
		dest := c.allocReg()
		c.emit(loadGlobalOp(values.BindVar), dest, c.constant(values.String(id.Name)), 0)
		return dest
	}
}

func (c *Compiler) nearestFieldInfo(name string) (fieldInfo, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.classCtx != nil {
			if fi, ok := cur.classCtx.fields[name]; ok {
				return fi, true
			}
			return fieldInfo{}, false
		}
	}
	return fieldInfo{}, false
}

func (c *Compiler) compileTemplateLiteral(e *ast.TemplateLiteral) uint8 {
	result := c.allocReg()
	c.emit(chunk.OpLoadConst, result, c.constant(values.String(e.Quasis[0])), 0)
	for i, expr := range e.Expressions {
		exprReg := c.compileExpression(expr)
		next := c.allocReg()
		c.emit(chunk.OpAdd, next, result, exprReg)
		result = next
		quasi := e.Quasis[i+1]
		if quasi != "" {
			qReg := c.allocReg()
			c.emit(chunk.OpLoadConst, qReg, c.constant(values.String(quasi)), 0)
			next2 := c.allocReg()
			c.emit(chunk.OpAdd, next2, result, qReg)
			result = next2
		}
	}
	return result
}

func (c *Compiler) compileArrayLiteral(e *ast.ArrayLiteral) uint8 {
	arr := c.allocReg()
	c.emit(chunk.OpNewArray, arr, 0, 0)
	for _, el := range e.Elements {
		if spread, ok := el.(*ast.SpreadElement); ok {
			sReg := c.compileExpression(spread.Argument)
			c.emit(chunk.OpArraySpread, arr, sReg, 0)
			continue
		}
		vReg := c.compileExpression(el)
		c.emit(chunk.OpArrayPush, arr, vReg, 0)
	}
	return arr
}

func (c *Compiler) compileObjectLiteral(e *ast.ObjectLiteral) uint8 {
	obj := c.allocReg()
	c.emit(chunk.OpCreateObjectLiteral, obj, 0, 0)
	for _, prop := range e.Properties {
		if prop.Spread {
			sReg := c.compileExpression(prop.Value)
			c.emit(chunk.OpObjectSpread, obj, sReg, 0)
			continue
		}
		vReg := c.compileExpression(prop.Value)
		if prop.Computed != nil {
			kReg := c.compileExpression(prop.Computed)
			c.emit(chunk.OpSetPropertyDynamic, obj, kReg, vReg)
			continue
		}
		nameConst := c.constant(values.String(prop.Key))
		c.emit(chunk.OpCreateObjectLiteralProperty, obj, nameConst, vReg)
	}
	return obj
}

func (c *Compiler) compileBinary(e *ast.BinaryExpression) uint8 {
	left := c.compileExpression(e.Left)
	right := c.compileExpression(e.Right)
	dest := c.allocReg()
	c.emit(binOpcode(e.Op), dest, left, right)
	return dest
}

// compileLogical short-circuits && / || / ?? with a conditional jump rather
// than always evaluating both sides.
func (c *Compiler) compileLogical(e *ast.LogicalExpression) uint8 {
	left := c.compileExpression(e.Left)
	switch e.Op {
	case ast.LogAnd:
		skip := c.emitJump(chunk.OpJumpIfFalse, left)
		right := c.compileExpression(e.Right)
		c.emit(chunk.OpMove, left, right, 0)
		c.patchJump(skip)
		return left
	case ast.LogOr:
		notReg := c.allocReg()
		c.emit(chunk.OpLogicalNot, notReg, left, 0)
		skip := c.emitJump(chunk.OpJumpIfFalse, notReg)
		right := c.compileExpression(e.Right)
		c.emit(chunk.OpMove, left, right, 0)
		c.patchJump(skip)
		return left
	default: // LogNullish: left == null holds exactly for null and undefined
		nullReg := c.allocReg()
		c.emit(chunk.OpLoadConst, nullReg, c.constant(values.Null), 0)
		isNullish := c.allocReg()
		c.emit(chunk.OpEqual, isNullish, left, nullReg)
		skip := c.emitJump(chunk.OpJumpIfFalse, isNullish)
		right := c.compileExpression(e.Right)
		c.emit(chunk.OpMove, left, right, 0)
		c.patchJump(skip)
		return left
	}
}

func (c *Compiler) compileUnary(e *ast.UnaryExpression) uint8 {
	if e.Op == ast.UnaryDelete {
		if m, ok := e.Argument.(*ast.MemberExpression); ok {
			objReg := c.compileExpression(m.Object)
			dest := c.allocReg()
			if m.Computed {
				keyReg := c.compileExpression(m.Index)
				c.emit(chunk.OpDelete, dest, objReg, keyReg)
			} else {
				c.emit(chunk.OpDelete, dest, objReg, c.constant(values.String(m.Property)))
			}
			return dest
		}
	}
	argReg := c.compileExpression(e.Argument)
	dest := c.allocReg()
	switch e.Op {
	case ast.UnaryNegate:
		c.emit(chunk.OpNegate, dest, argReg, 0)
	case ast.UnaryNot:
		c.emit(chunk.OpLogicalNot, dest, argReg, 0)
	case ast.UnaryTypeOf:
		c.emit(chunk.OpTypeOf, dest, argReg, 0)
	case ast.UnaryVoid:
		c.emit(chunk.OpVoid, dest, argReg, 0)
	default:
		c.emit(chunk.OpLogicalNot, dest, argReg, 0)
	}
	return dest
}

func (c *Compiler) compileUpdate(e *ast.UpdateExpression) uint8 {
	op := chunk.OpIncrement
	if !e.Increment {
		op = chunk.OpDecrement
	}
	switch t := e.Argument.(type) {
	case *ast.Identifier:
		oldReg := c.compileIdentifier(t)
		newReg := c.allocReg()
		c.emit(op, newReg, oldReg, 0)
		c.storeIdentifier(t, newReg)
		if e.Prefix {
			return newReg
		}
		return oldReg
	case *ast.MemberExpression:
		oldReg := c.compileMember(t)
		newReg := c.allocReg()
		c.emit(op, newReg, oldReg, 0)
		c.storeMember(t, newReg)
		if e.Prefix {
			return newReg
		}
		return oldReg
	default:
		c.fail(e.Pos(), "invalid update target")
		return c.allocReg()
	}
}

func (c *Compiler) compileAssignment(e *ast.AssignmentExpression) uint8 {
	switch target := e.Target.(type) {
	case *ast.Identifier:
		var valueReg uint8
		if e.Op == ast.AssignPlain {
			valueReg = c.compileExpression(e.Value)
		} else if bop, ok := compoundBinOp(e.Op); ok {
			cur := c.compileIdentifier(target)
			rhs := c.compileExpression(e.Value)
			valueReg = c.allocReg()
			c.emit(binOpcode(bop), valueReg, cur, rhs)
		} else {
			// &&=, ||=, ??=
			cur := c.compileIdentifier(target)
			valueReg = c.compileLogicalAssign(e.Op, cur, e.Value)
		}
		c.storeIdentifier(target, valueReg)
		return valueReg
	case *ast.MemberExpression:
		var valueReg uint8
		if e.Op == ast.AssignPlain {
			valueReg = c.compileExpression(e.Value)
		} else if bop, ok := compoundBinOp(e.Op); ok {
			cur := c.compileMember(target)
			rhs := c.compileExpression(e.Value)
			valueReg = c.allocReg()
			c.emit(binOpcode(bop), valueReg, cur, rhs)
		} else {
			cur := c.compileMember(target)
			valueReg = c.compileLogicalAssign(e.Op, cur, e.Value)
		}
		c.storeMember(target, valueReg)
		return valueReg
	default:
		c.fail(e.Pos(), "invalid assignment target")
		return c.allocReg()
	}
}

func (c *Compiler) compileLogicalAssign(op ast.AssignOp, cur uint8, rhs ast.Expression) uint8 {
	switch op {
	case ast.AssignAnd:
		skip := c.emitJump(chunk.OpJumpIfFalse, cur)
		v := c.compileExpression(rhs)
		c.emit(chunk.OpMove, cur, v, 0)
		c.patchJump(skip)
		return cur
	case ast.AssignOr:
		notReg := c.allocReg()
		c.emit(chunk.OpLogicalNot, notReg, cur, 0)
		skip := c.emitJump(chunk.OpJumpIfFalse, notReg)
		v := c.compileExpression(rhs)
		c.emit(chunk.OpMove, cur, v, 0)
		c.patchJump(skip)
		return cur
	default: // AssignNullish
		v := c.compileExpression(rhs)
		dest := c.allocReg()
		c.emit(chunk.OpNullishCoalescing, dest, cur, v)
		return dest
	}
}

func (c *Compiler) storeIdentifier(id *ast.Identifier, valueReg uint8) {
	kind, slot, bkind := c.resolve(id.Name)
	switch kind {
	case resLocal:
		if bkind == values.BindConst {
			c.fail(id.Pos(), "assignment to constant '"+id.Name+"'")
		}
		c.emit(storeLocalOp(bkind), slot, valueReg, 0)
	case resUpvalue:
		if bkind == values.BindConst {
			c.fail(id.Pos(), "assignment to constant '"+id.Name+"'")
		}
		c.emit(storeUpvalueOp(bkind), slot, valueReg, 0)
	case resGlobal:
		if bkind == values.BindConst {
			c.fail(id.Pos(), "assignment to constant '"+id.Name+"'")
		}
		c.emit(storeGlobalOp(bkind), valueReg, c.constant(values.String(id.Name)), 0)
	default:
		if _, ok := c.nearestFieldInfo(id.Name); ok {
			c.emit(chunk.OpStoreThisProperty, c.constant(values.String(id.Name)), valueReg, 0)
			return
		}
		c.fail(id.Pos(), "assignment to undefined binding '"+id.Name+"'")
	}
}

func (c *Compiler) compileConditional(e *ast.ConditionalExpression) uint8 {
	testReg := c.compileExpression(e.Test)
	elseJump := c.emitJump(chunk.OpJumpIfFalse, testReg)
	dest := c.allocReg()
	consReg := c.compileExpression(e.Consequent)
	c.emit(chunk.OpMove, dest, consReg, 0)
	endJump := c.emitJump(chunk.OpJump, 0)
	c.patchJump(elseJump)
	altReg := c.compileExpression(e.Alternate)
	c.emit(chunk.OpMove, dest, altReg, 0)
	c.patchJump(endJump)
	return dest
}

func (c *Compiler) compileMember(e *ast.MemberExpression) uint8 {
	objReg := c.compileExpression(e.Object)
	dest := c.allocReg()
	if e.Computed {
		keyReg := c.compileExpression(e.Index)
		c.emit(chunk.OpGetPropertyDynamic, dest, objReg, keyReg)
	} else {
		c.emit(chunk.OpGetProperty, dest, objReg, c.constant(values.String(e.Property)))
	}
	return dest
}

func (c *Compiler) storeMember(e *ast.MemberExpression, valueReg uint8) {
	objReg := c.compileExpression(e.Object)
	if e.Computed {
		keyReg := c.compileExpression(e.Index)
		c.emit(chunk.OpSetPropertyDynamic, objReg, keyReg, valueReg)
	} else {
		c.emit(chunk.OpSetProperty, objReg, c.constant(values.String(e.Property)), valueReg)
	}
}

func (c *Compiler) compileCall(e *ast.CallExpression) uint8 {
	calleeReg := c.compileExpression(e.Callee)
	c.pushArgs(e.Args)
	dest := c.allocReg()
	c.emit(chunk.OpCall, dest, calleeReg, uint8(len(e.Args)))
	return dest
}

func (c *Compiler) compileSuperCall(e *ast.SuperCallExpression) uint8 {
	c.pushArgs(e.Args)
	dest := c.allocReg()
	c.emit(chunk.OpSuperCall, dest, uint8(len(e.Args)), 0)
	return dest
}

func (c *Compiler) pushArgs(args []ast.Expression) {
	for _, a := range args {
		if spread, ok := a.(*ast.SpreadElement); ok {
			r := c.compileExpression(spread.Argument)
			c.emit(chunk.OpPushSpreadArg, r, 0, 0)
			continue
		}
		r := c.compileExpression(a)
		c.emit(chunk.OpPushArg, r, 0, 0)
	}
}

// compileNew lowers `new Callee(args)` into instance creation followed by an
// explicit constructor invocation.
func (c *Compiler) compileNew(e *ast.NewExpression) uint8 {
	classReg := c.compileExpression(e.Callee)
	instReg := c.allocReg()
	c.emit(chunk.OpCreateInstance, instReg, classReg, 0)
	c.pushArgs(e.Args)
	c.emit(chunk.OpInvokeConstructor, instReg, uint8(len(e.Args)), 0)
	return instReg
}

func (c *Compiler) loadResolved(pos errors.Position, name string) uint8 {
	return c.compileIdentifier(&ast.Identifier{Base: ast.Base{Position: pos}, Name: name})
}
