package parser

import (
	"github.com/ardar-lang/ardar/ast"
	"github.com/ardar-lang/ardar/errors"
	"github.com/ardar-lang/ardar/lexer"
)

type precedence int

const (
	precNone precedence = iota
	precAssign
	precTernary
	precNullish
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precExponent
	precUnary
	precPostfix
	precCall
)

var binaryPrec = map[string]precedence{
	"??": precNullish, "||": precOr, "&&": precAnd,
	"|": precBitOr, "^": precBitXor, "&": precBitAnd,
	"==": precEquality, "!=": precEquality, "===": precEquality, "!==": precEquality,
	"<": precRelational, "<=": precRelational, ">": precRelational, ">=": precRelational,
	"in": precRelational, "instanceof": precRelational,
	"<<": precShift, ">>": precShift, ">>>": precShift,
	"+": precAdditive, "-": precAdditive,
	"*": precMultiplicative, "/": precMultiplicative, "%": precMultiplicative,
	"**": precExponent,
}

var assignOps = map[string]ast.AssignOp{
	"=": ast.AssignPlain, "+=": ast.AssignAdd, "-=": ast.AssignSub, "*=": ast.AssignMul,
	"/=": ast.AssignDiv, "%=": ast.AssignMod, "**=": ast.AssignPow,
	"&&=": ast.AssignAnd, "||=": ast.AssignOr, "??=": ast.AssignNullish,
}

func (p *Parser) parseExpression(min precedence) (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.parseBinaryRHS(left, min)
}

func (p *Parser) parseBinaryRHS(left ast.Expression, min precedence) (ast.Expression, error) {
	for {
		if p.cur.Type == lexer.TokPunct || p.cur.Type == lexer.TokKeyword {
			if op, ok := assignOps[p.cur.Lit]; ok && min <= precAssign {
				pos := p.cur.Pos
				if err := p.advance(); err != nil {
					return nil, err
				}
				right, err := p.parseExpression(precAssign)
				if err != nil {
					return nil, err
				}
				left = &ast.AssignmentExpression{Base: ast.Base{Position: pos}, Op: op, Target: left, Value: right}
				continue
			}
			if p.cur.Lit == "?" && min <= precTernary {
				pos := p.cur.Pos
				if err := p.advance(); err != nil {
					return nil, err
				}
				cons, err := p.parseExpression(precAssign)
				if err != nil {
					return nil, err
				}
				if err := p.expect(":"); err != nil {
					return nil, err
				}
				alt, err := p.parseExpression(precAssign)
				if err != nil {
					return nil, err
				}
				left = &ast.ConditionalExpression{Base: ast.Base{Position: pos}, Test: left, Consequent: cons, Alternate: alt}
				continue
			}
			if prec, ok := binaryPrec[p.cur.Lit]; ok && prec >= min {
				opLit := p.cur.Lit
				pos := p.cur.Pos
				if err := p.advance(); err != nil {
					return nil, err
				}
				nextMin := prec + 1
				if opLit == "**" {
					nextMin = prec // right-associative
				}
				right, err := p.parseExpression(nextMin)
				if err != nil {
					return nil, err
				}
				left = combine(pos, opLit, left, right)
				continue
			}
		}
		return left, nil
	}
}

func combine(pos errors.Position, op string, left, right ast.Expression) ast.Expression {
	switch op {
	case "&&":
		return &ast.LogicalExpression{Base: ast.Base{Position: pos}, Op: ast.LogAnd, Left: left, Right: right}
	case "||":
		return &ast.LogicalExpression{Base: ast.Base{Position: pos}, Op: ast.LogOr, Left: left, Right: right}
	case "??":
		return &ast.LogicalExpression{Base: ast.Base{Position: pos}, Op: ast.LogNullish, Left: left, Right: right}
	}
	binOps := map[string]ast.BinOp{
		"+": ast.OpAdd, "-": ast.OpSub, "*": ast.OpMul, "/": ast.OpDiv, "%": ast.OpMod, "**": ast.OpPow,
		"<<": ast.OpShl, ">>": ast.OpShr, ">>>": ast.OpUShr,
		"&": ast.OpBitAnd, "|": ast.OpBitOr, "^": ast.OpBitXor,
		"==": ast.OpEqual, "!=": ast.OpNotEqual, "===": ast.OpStrictEqual, "!==": ast.OpStrictNotEqual,
		"<": ast.OpLess, "<=": ast.OpLessEq, ">": ast.OpGreater, ">=": ast.OpGreaterEq,
		"in": ast.OpIn, "instanceof": ast.OpInstanceOf,
	}
	return &ast.BinaryExpression{Base: ast.Base{Position: pos}, Op: binOps[op], Left: left, Right: right}
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	pos := p.cur.Pos
	switch {
	case p.curIs("!"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Base: ast.Base{Position: pos}, Op: ast.UnaryNot, Argument: arg}, nil
	case p.curIs("-"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Base: ast.Base{Position: pos}, Op: ast.UnaryNegate, Argument: arg}, nil
	case p.curIs("typeof"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Base: ast.Base{Position: pos}, Op: ast.UnaryTypeOf, Argument: arg}, nil
	case p.curIs("void"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Base: ast.Base{Position: pos}, Op: ast.UnaryVoid, Argument: arg}, nil
	case p.curIs("delete"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Base: ast.Base{Position: pos}, Op: ast.UnaryDelete, Argument: arg}, nil
	case p.curIs("await"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpression{Base: ast.Base{Position: pos}, Argument: arg}, nil
	case p.curIs("++") || p.curIs("--"):
		inc := p.curIs("++")
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Base: ast.Base{Position: pos}, Increment: inc, Prefix: true, Argument: arg}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parseCallOrMember()
	if err != nil {
		return nil, err
	}
	if p.curIs("++") || p.curIs("--") {
		pos := p.cur.Pos
		inc := p.curIs("++")
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Base: ast.Base{Position: pos}, Increment: inc, Prefix: false, Argument: expr}, nil
	}
	return expr, nil
}

func (p *Parser) parseCallOrMember() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.curIs("."):
			pos := p.cur.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			name := p.cur.Lit
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Base: ast.Base{Position: pos}, Object: expr, Property: name}
		case p.curIs("["):
			pos := p.cur.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpression(precNone)
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Base: ast.Base{Position: pos}, Object: expr, Index: idx, Computed: true}
		case p.curIs("("):
			pos := p.cur.Pos
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			if sup, ok := expr.(*ast.SuperExpression); ok {
				_ = sup
				expr = &ast.SuperCallExpression{Base: ast.Base{Position: pos}, Args: args}
			} else {
				expr = &ast.CallExpression{Base: ast.Base{Position: pos}, Callee: expr, Args: args}
			}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArguments() ([]ast.Expression, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for !p.curIs(")") {
		if p.curIs("...") {
			pos := p.cur.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseExpression(precAssign)
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.SpreadElement{Base: ast.Base{Position: pos}, Argument: e})
		} else {
			e, err := p.parseExpression(precAssign)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		if p.curIs(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return args, p.expect(")")
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	pos := p.cur.Pos
	switch p.cur.Type {
	case lexer.TokNumber:
		v := p.cur.Num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NumberLiteral{Base: ast.Base{Position: pos}, Value: v}, nil
	case lexer.TokString:
		s := p.cur.Lit
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringLiteral{Base: ast.Base{Position: pos}, Value: s}, nil
	case lexer.TokTemplateString:
		return p.parseTemplateLiteral()
	case lexer.TokIdent:
		return p.parseIdentOrArrow()
	case lexer.TokKeyword:
		return p.parseKeywordPrimary()
	}
	if p.curIs("(") {
		return p.parseParenOrArrow()
	}
	if p.curIs("[") {
		return p.parseArrayLiteral()
	}
	if p.curIs("{") {
		return p.parseObjectLiteral()
	}
	return nil, errors.NewSyntaxError("unexpected token '"+p.cur.Lit+"'", pos).WithSource(p.source)
}

func (p *Parser) parseKeywordPrimary() (ast.Expression, error) {
	pos := p.cur.Pos
	switch p.cur.Lit {
	case "true", "false":
		v := p.cur.Lit == "true"
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BooleanLiteral{Base: ast.Base{Position: pos}, Value: v}, nil
	case "null":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NullLiteral{Base: ast.Base{Position: pos}}, nil
	case "undefined":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.UndefinedLiteral{Base: ast.Base{Position: pos}}, nil
	case "this":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ThisExpression{Base: ast.Base{Position: pos}}, nil
	case "super":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.SuperExpression{Base: ast.Base{Position: pos}}, nil
	case "new":
		return p.parseNew()
	case "function":
		return p.parseFunctionExpression(false)
	case "async":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.curIs("function") {
			return p.parseFunctionExpression(true)
		}
		return p.parseArrowFromParams(true)
	}
	return nil, errors.NewSyntaxError("unexpected keyword '"+p.cur.Lit+"'", pos).WithSource(p.source)
}

func (p *Parser) parseNew() (ast.Expression, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	callee, err := p.parseCallOrMemberNoCall()
	if err != nil {
		return nil, err
	}
	var args []ast.Expression
	if p.curIs("(") {
		args, err = p.parseArguments()
		if err != nil {
			return nil, err
		}
	}
	return &ast.NewExpression{Base: ast.Base{Position: pos}, Callee: callee, Args: args}, nil
}

// parseCallOrMemberNoCall parses a member-access chain for `new Callee.x(...)`
// without consuming the final call (the `new` handler consumes the args).
func (p *Parser) parseCallOrMemberNoCall() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.curIs(".") || p.curIs("[") {
		if p.curIs(".") {
			pos := p.cur.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			name := p.cur.Lit
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Base: ast.Base{Position: pos}, Object: expr, Property: name}
		} else {
			pos := p.cur.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpression(precNone)
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Base: ast.Base{Position: pos}, Object: expr, Index: idx, Computed: true}
		}
	}
	return expr, nil
}

func (p *Parser) parseFunctionExpression(isAsync bool) (ast.Expression, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name := ""
	if p.cur.Type == lexer.TokIdent {
		name = p.cur.Lit
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionExpression{Base: ast.Base{Position: pos}, Name: name, Params: params, Body: body, IsAsync: isAsync}, nil
}

// parseIdentOrArrow handles a bare identifier, which may turn out to be the
// sole parameter of an arrow function (`x => x+1`).
func (p *Parser) parseIdentOrArrow() (ast.Expression, error) {
	pos := p.cur.Pos
	name := p.cur.Lit
	if p.peekIs("=>") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.finishArrowBody(pos, []ast.Param{{Name: name}}, false)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Identifier{Base: ast.Base{Position: pos}, Name: name}, nil
}

func (p *Parser) parseArrowFromParams(isAsync bool) (ast.Expression, error) {
	pos := p.cur.Pos
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if err := p.expect("=>"); err != nil {
		return nil, err
	}
	return p.finishArrowBody(pos, params, isAsync)
}

func (p *Parser) finishArrowBody(pos errors.Position, params []ast.Param, isAsync bool) (ast.Expression, error) {
	if p.curIs("{") {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ArrowFunctionExpression{Base: ast.Base{Position: pos}, Params: params, Body: body, IsAsync: isAsync}, nil
	}
	expr, err := p.parseExpression(precAssign)
	if err != nil {
		return nil, err
	}
	body := &ast.Block{Base: ast.Base{Position: pos}, Body: []ast.Statement{
		&ast.ReturnStatement{Base: ast.Base{Position: pos}, Argument: expr},
	}}
	return &ast.ArrowFunctionExpression{Base: ast.Base{Position: pos}, Params: params, Body: body, IsAsync: isAsync}, nil
}

// parseParenOrArrow disambiguates `(a, b) => ...` from a parenthesised
// expression by attempting the arrow-parameter parse and backtracking.
func (p *Parser) parseParenOrArrow() (ast.Expression, error) {
	pos := p.cur.Pos
	lexSnapshot := *p.lex
	curSnapshot, peekSnapshot := p.cur, p.peek

	if params, ok := p.tryParseArrowParams(); ok {
		if err := p.expect("=>"); err != nil {
			return nil, err
		}
		return p.finishArrowBody(pos, params, false)
	}

	*p.lex = lexSnapshot
	p.cur, p.peek = curSnapshot, peekSnapshot

	if err := p.expect("("); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression(precNone)
	if err != nil {
		return nil, err
	}
	return expr, p.expect(")")
}

func (p *Parser) tryParseArrowParams() ([]ast.Param, bool) {
	params, err := p.parseParams()
	if err != nil || !p.curIs("=>") {
		return nil, false
	}
	return params, true
}

func (p *Parser) parseArrayLiteral() (ast.Expression, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	arr := &ast.ArrayLiteral{Base: ast.Base{Position: pos}}
	for !p.curIs("]") {
		if p.curIs("...") {
			sPos := p.cur.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseExpression(precAssign)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, &ast.SpreadElement{Base: ast.Base{Position: sPos}, Argument: e})
		} else {
			e, err := p.parseExpression(precAssign)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, e)
		}
		if p.curIs(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return arr, p.expect("]")
}

func (p *Parser) parseObjectLiteral() (ast.Expression, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	obj := &ast.ObjectLiteral{Base: ast.Base{Position: pos}}
	for !p.curIs("}") {
		if p.curIs("...") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseExpression(precAssign)
			if err != nil {
				return nil, err
			}
			obj.Properties = append(obj.Properties, ast.ObjectProperty{Spread: true, Value: e})
		} else if p.curIs("[") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			keyExpr, err := p.parseExpression(precNone)
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			if err := p.expect(":"); err != nil {
				return nil, err
			}
			val, err := p.parseExpression(precAssign)
			if err != nil {
				return nil, err
			}
			obj.Properties = append(obj.Properties, ast.ObjectProperty{Computed: keyExpr, Value: val})
		} else {
			key := p.cur.Lit
			if err := p.advance(); err != nil {
				return nil, err
			}
			var val ast.Expression
			if p.curIs(":") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				v, err := p.parseExpression(precAssign)
				if err != nil {
					return nil, err
				}
				val = v
			} else {
				val = &ast.Identifier{Base: ast.Base{Position: pos}, Name: key}
			}
			obj.Properties = append(obj.Properties, ast.ObjectProperty{Key: key, Value: val})
		}
		if p.curIs(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return obj, p.expect("}")
}

func (p *Parser) parseTemplateLiteral() (ast.Expression, error) {
	pos := p.cur.Pos
	raw := p.cur.Lit
	if err := p.advance(); err != nil {
		return nil, err
	}
	tl := &ast.TemplateLiteral{Base: ast.Base{Position: pos}}
	var quasi []byte
	i := 0
	for i < len(raw) {
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			end := i + 2
			depth := 1
			for end < len(raw) && depth > 0 {
				if raw[end] == '{' {
					depth++
				} else if raw[end] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				end++
			}
			tl.Quasis = append(tl.Quasis, string(quasi))
			quasi = nil
			exprSrc := raw[i+2 : end]
			expr, err := ParseExpressionString(exprSrc)
			if err != nil {
				return nil, err
			}
			tl.Expressions = append(tl.Expressions, expr)
			i = end + 1
			continue
		}
		quasi = append(quasi, raw[i])
		i++
	}
	tl.Quasis = append(tl.Quasis, string(quasi))
	return tl, nil
}

// ParseExpressionString parses a standalone expression, used for template
// literal interpolations.
func ParseExpressionString(src string) (ast.Expression, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	return p.parseExpression(precNone)
}
