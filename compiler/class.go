package compiler

import (
	"github.com/ardar-lang/ardar/ast"
	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/values"
)

// compileClassDeclaration emits NewClass followed by one property/method
// creation instruction per member, then binds the class value under its
// name.
func (c *Compiler) compileClassDeclaration(s *ast.ClassDeclaration) {
	fields := make(map[string]fieldInfo, len(s.Fields))
	for _, f := range s.Fields {
		fields[f.Name] = fieldInfo{visibility: f.Visibility, kind: bindKind(f.Kind), isStatic: f.IsStatic}
	}
	info := &classInfo{name: s.Name, superName: s.SuperClass, fields: fields}

	classReg := c.allocReg()
	if s.SuperClass != "" {
		superReg := c.loadResolved(s.Pos(), s.SuperClass)
		c.emit(chunk.OpNewClass, classReg, superReg, 0)
	} else {
		c.emit(chunk.OpNewClass, classReg, 0, 0)
	}

	for _, f := range s.Fields {
		var valReg uint8
		if f.Init != nil {
			valReg = c.compileExpression(f.Init)
		} else {
			valReg = c.allocReg()
			c.emit(chunk.OpLoadConst, valReg, c.constant(values.Undefined), 0)
		}
		nameConst := c.constant(values.String(f.Name))
		c.emit(classPropertyOp(f.Visibility, f.IsStatic, bindKind(f.Kind)), classReg, nameConst, valReg)
	}

	for _, m := range s.Methods {
		methodReg := c.compileMethod(m, info)
		nameConst := c.constant(values.String(m.Name))
		c.emit(classMethodOp(m.Visibility, m.IsStatic), classReg, nameConst, methodReg)
	}

	c.bindName(s.Name, classReg, s.Pos())
}

func (c *Compiler) compileMethod(m *ast.MethodDeclaration, info *classInfo) uint8 {
	child := newChild(c, info.name+"."+m.Name)
	child.classCtx = info
	for _, p := range m.Params {
		child.declareBinding(values.BindVar, p.Name, m.Pos())
	}
	return c.finishMethodBody(child, m)
}

func (c *Compiler) finishMethodBody(child *Compiler, m *ast.MethodDeclaration) uint8 {
	for _, stmt := range m.Body.Body {
		child.compileStatement(stmt)
	}
	if m.Name == "constructor" {
		child.emitImplicitThisReturn()
	} else {
		child.emitImplicitReturn()
	}
	fn := &values.FunctionObject{
		ChunkIndex:   child.chunkIndex,
		Arity:        len(m.Params),
		Name:         m.Name,
		UpvaluesSize: len(child.upvalues),
		IsAsync:      m.IsAsync,
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
