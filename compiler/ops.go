package compiler

import (
	"github.com/ardar-lang/ardar/ast"
	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/values"
)

// Locals live directly in registers; Load/StoreLocal* still copy between a
// local's home register and a fresh temp register rather than aliasing it
// directly, so every expression operates on a register it alone owns.
func loadLocalOp(kind values.BindingKind) chunk.Op {
	switch kind {
	case values.BindLet:
		return chunk.OpLoadLocalLet
	case values.BindConst:
		return chunk.OpLoadLocalConst
	default:
		return chunk.OpLoadLocalVar
	}
}

func storeLocalOp(kind values.BindingKind) chunk.Op {
	switch kind {
	case values.BindLet:
		return chunk.OpStoreLocalLet
	case values.BindConst:
		return chunk.OpStoreLocalConst
	default:
		return chunk.OpStoreLocalVar
	}
}

func storeUpvalueOp(kind values.BindingKind) chunk.Op {
	switch kind {
	case values.BindLet:
		return chunk.OpStoreUpvalueLet
	case values.BindConst:
		return chunk.OpStoreUpvalueConst
	default:
		return chunk.OpStoreUpvalueVar
	}
}

func loadGlobalOp(kind values.BindingKind) chunk.Op {
	switch kind {
	case values.BindLet:
		return chunk.OpLoadGlobalLet
	case values.BindConst:
		return chunk.OpLoadGlobalConst
	default:
		return chunk.OpLoadGlobalVar
	}
}

func storeGlobalOp(kind values.BindingKind) chunk.Op {
	switch kind {
	case values.BindLet:
		return chunk.OpStoreGlobalLet
	case values.BindConst:
		return chunk.OpStoreGlobalConst
	default:
		return chunk.OpStoreGlobalVar
	}
}

func binOpcode(op ast.BinOp) chunk.Op {
	switch op {
	case ast.OpAdd:
		return chunk.OpAdd
	case ast.OpSub:
		return chunk.OpSub
	case ast.OpMul:
		return chunk.OpMul
	case ast.OpDiv:
		return chunk.OpDiv
	case ast.OpMod:
		return chunk.OpMod
	case ast.OpPow:
		return chunk.OpPow
	case ast.OpShl:
		return chunk.OpShiftLeft
	case ast.OpShr:
		return chunk.OpShiftRight
	case ast.OpUShr:
		return chunk.OpUnsignedShiftRight
	case ast.OpBitAnd:
		return chunk.OpBitAnd
	case ast.OpBitOr:
		return chunk.OpBitOr
	case ast.OpBitXor:
		return chunk.OpBitXor
	case ast.OpEqual:
		return chunk.OpEqual
	case ast.OpNotEqual:
		return chunk.OpNotEqual
	case ast.OpStrictEqual:
		return chunk.OpStrictEqual
	case ast.OpStrictNotEqual:
		return chunk.OpStrictNotEqual
	case ast.OpLess:
		return chunk.OpLessThan
	case ast.OpLessEq:
		return chunk.OpLessThanOrEqual
	case ast.OpGreater:
		return chunk.OpGreaterThan
	case ast.OpGreaterEq:
		return chunk.OpGreaterThanOrEqual
	case ast.OpIn:
		return chunk.OpIn
	case ast.OpInstanceOf:
		return chunk.OpInstanceOf
	default:
		return chunk.OpAdd
	}
}

// compoundBinOp maps a compound assignment's arithmetic/logical part to the
// BinOp used to compute `target <op> value` before storing back.
func compoundBinOp(op ast.AssignOp) (ast.BinOp, bool) {
	switch op {
	case ast.AssignAdd:
		return ast.OpAdd, true
	case ast.AssignSub:
		return ast.OpSub, true
	case ast.AssignMul:
		return ast.OpMul, true
	case ast.AssignDiv:
		return ast.OpDiv, true
	case ast.AssignMod:
		return ast.OpMod, true
	case ast.AssignPow:
		return ast.OpPow, true
	default:
		return 0, false
	}
}

func classPropertyOp(vis ast.Visibility, isStatic bool, kind values.BindingKind) chunk.Op {
	isConst := kind == values.BindConst
	switch {
	case vis == ast.Public && !isStatic && !isConst:
		return chunk.OpCreateClassPublicPropertyVar
	case vis == ast.Public && !isStatic && isConst:
		return chunk.OpCreateClassPublicPropertyConst
	case vis == ast.Protected && !isStatic && !isConst:
		return chunk.OpCreateClassProtectedPropertyVar
	case vis == ast.Protected && !isStatic && isConst:
		return chunk.OpCreateClassProtectedPropertyConst
	case vis == ast.Private && !isStatic && !isConst:
		return chunk.OpCreateClassPrivatePropertyVar
	case vis == ast.Private && !isStatic && isConst:
		return chunk.OpCreateClassPrivatePropertyConst
	case vis == ast.Public && isStatic && !isConst:
		return chunk.OpCreateClassPublicStaticPropertyVar
	case vis == ast.Public && isStatic && isConst:
		return chunk.OpCreateClassPublicStaticPropertyConst
	case vis == ast.Protected && isStatic && !isConst:
		return chunk.OpCreateClassProtectedStaticPropertyVar
	case vis == ast.Protected && isStatic && isConst:
		return chunk.OpCreateClassProtectedStaticPropertyConst
	case vis == ast.Private && isStatic && !isConst:
		return chunk.OpCreateClassPrivateStaticPropertyVar
	default:
		return chunk.OpCreateClassPrivateStaticPropertyConst
	}
}

func classMethodOp(vis ast.Visibility, isStatic bool) chunk.Op {
	switch {
	case vis == ast.Public && !isStatic:
		return chunk.OpCreateClassPublicMethod
	case vis == ast.Protected && !isStatic:
		return chunk.OpCreateClassProtectedMethod
	case vis == ast.Private && !isStatic:
		return chunk.OpCreateClassPrivateMethod
	case vis == ast.Public && isStatic:
		return chunk.OpCreateClassPublicStaticMethod
	case vis == ast.Protected && isStatic:
		return chunk.OpCreateClassProtectedStaticMethod
	default:
		return chunk.OpCreateClassPrivateStaticMethod
	}
}
