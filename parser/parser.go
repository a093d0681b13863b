// Package parser implements a Pratt-style recursive descent parser that
// turns Ardar source text into the ast.Program the compiler consumes.
// Parsing sits outside the compiler/VM core; this package is the minimal
// external collaborator needed to exercise the compiler and VM from real
// source.
package parser

import (
	"github.com/ardar-lang/ardar/ast"
	"github.com/ardar-lang/ardar/errors"
	"github.com/ardar-lang/ardar/lexer"
)

type Parser struct {
	lex    *lexer.Lexer
	cur    lexer.Token
	peek   lexer.Token
	source string
	errs   errors.List
}

func New(src string) (*Parser, error) {
	p := &Parser{lex: lexer.New(src), source: src}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.lex.Next()
	if err != nil {
		return err.WithSource(p.source)
	}
	p.peek = tok
	return nil
}

func (p *Parser) curIs(lit string) bool {
	return (p.cur.Type == lexer.TokPunct || p.cur.Type == lexer.TokKeyword) && p.cur.Lit == lit
}

func (p *Parser) peekIs(lit string) bool {
	return (p.peek.Type == lexer.TokPunct || p.peek.Type == lexer.TokKeyword) && p.peek.Lit == lit
}

func (p *Parser) expect(lit string) error {
	if !p.curIs(lit) {
		return errors.NewSyntaxError("expected '"+lit+"', found '"+p.cur.Lit+"'", p.cur.Pos).WithSource(p.source)
	}
	return p.advance()
}

// ParseProgram parses the entire token stream into a Program node.
func ParseProgram(src string) (*ast.Program, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	prog := &ast.Program{Base: ast.Base{Position: p.cur.Pos}}
	for p.cur.Type != lexer.TokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
	}
	return prog, nil
}

func (p *Parser) skipSemi() error {
	if p.curIs(";") {
		return p.advance()
	}
	return nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.curIs("{"):
		return p.parseBlock()
	case p.curIs("var"), p.curIs("let"), p.curIs("const"):
		return p.parseVarDeclaration()
	case p.curIs("if"):
		return p.parseIf()
	case p.curIs("while"):
		return p.parseWhile()
	case p.curIs("do"):
		return p.parseDoWhile()
	case p.curIs("for"):
		return p.parseFor()
	case p.curIs("break"):
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BreakStatement{Base: ast.Base{Position: pos}}, p.skipSemi()
	case p.curIs("continue"):
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ContinueStatement{Base: ast.Base{Position: pos}}, p.skipSemi()
	case p.curIs("return"):
		return p.parseReturn()
	case p.curIs("throw"):
		return p.parseThrow()
	case p.curIs("try"):
		return p.parseTry()
	case p.curIs("switch"):
		return p.parseSwitch()
	case p.curIs("function"):
		return p.parseFunctionDeclaration(false)
	case p.curIs("async") && p.peekIs("function"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseFunctionDeclaration(true)
	case p.curIs("class"):
		return p.parseClass()
	case p.curIs("import"):
		return p.parseImport()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	pos := p.cur.Pos
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	b := &ast.Block{Base: ast.Base{Position: pos}}
	for !p.curIs("}") && p.cur.Type != lexer.TokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		b.Body = append(b.Body, stmt)
	}
	return b, p.expect("}")
}

func bindingKind(lit string) ast.BindingKind {
	switch lit {
	case "let":
		return ast.BindLet
	case "const":
		return ast.BindConst
	default:
		return ast.BindVar
	}
}

func (p *Parser) parseVarDeclaration() (*ast.VarDeclaration, error) {
	pos := p.cur.Pos
	kind := bindingKind(p.cur.Lit)
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.TokIdent {
		return nil, errors.NewSyntaxError("expected identifier in declaration", p.cur.Pos).WithSource(p.source)
	}
	name := p.cur.Lit
	if err := p.advance(); err != nil {
		return nil, err
	}
	decl := &ast.VarDeclaration{Base: ast.Base{Position: pos}, Kind: kind, Name: name}
	if p.curIs("=") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		init, err := p.parseExpression(precAssign)
		if err != nil {
			return nil, err
		}
		decl.Init = init
	} else if kind == ast.BindConst {
		return nil, errors.NewSyntaxError("const declaration requires an initialiser", pos).WithSource(p.source)
	}
	return decl, p.skipSemi()
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	pos := p.cur.Pos
	expr, err := p.parseExpression(precNone)
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Base: ast.Base{Position: pos}, Expr: expr}, p.skipSemi()
}

func (p *Parser) parseIf() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(precNone)
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	cons, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Base: ast.Base{Position: pos}, Test: test, Consequent: cons}
	if p.curIs("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		alt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Alternate = alt
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(precNone)
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Base: ast.Base{Position: pos}, Test: test, Body: body}, nil
}

func (p *Parser) parseDoWhile() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if err := p.expect("while"); err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(precNone)
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return &ast.DoWhileStatement{Base: ast.Base{Position: pos}, Body: body, Test: test}, p.skipSemi()
}

func (p *Parser) parseFor() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}

	if (p.curIs("let") || p.curIs("const") || p.curIs("var")) {
		kind := bindingKind(p.cur.Lit)
		lexSnapshot := *p.lex
		curSnapshot, peekSnapshot := p.cur, p.peek
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type == lexer.TokIdent && (p.peekIs("in") || p.peekIs("of")) {
			name := p.cur.Lit
			isOf := p.peek.Lit == "of"
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			iterable, err := p.parseExpression(precNone)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			body, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			if isOf {
				return &ast.ForOfStatement{Base: ast.Base{Position: pos}, Kind: kind, Name: name, Iterable: iterable, Body: body}, nil
			}
			return &ast.ForInStatement{Base: ast.Base{Position: pos}, Kind: kind, Name: name, Object: iterable, Body: body}, nil
		}
		*p.lex = lexSnapshot
		p.cur, p.peek = curSnapshot, peekSnapshot
	}

	var init ast.Node
	if !p.curIs(";") {
		if p.curIs("let") || p.curIs("const") || p.curIs("var") {
			decl, err := p.parseVarDeclarationNoSemi()
			if err != nil {
				return nil, err
			}
			init = decl
		} else {
			expr, err := p.parseExpression(precNone)
			if err != nil {
				return nil, err
			}
			init = &ast.ExpressionStatement{Base: ast.Base{Position: expr.Pos()}, Expr: expr}
		}
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	var test ast.Expression
	if !p.curIs(";") {
		e, err := p.parseExpression(precNone)
		if err != nil {
			return nil, err
		}
		test = e
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	var update ast.Expression
	if !p.curIs(")") {
		e, err := p.parseExpression(precNone)
		if err != nil {
			return nil, err
		}
		update = e
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Base: ast.Base{Position: pos}, Init: init, Test: test, Update: update, Body: body}, nil
}

func (p *Parser) parseVarDeclarationNoSemi() (*ast.VarDeclaration, error) {
	pos := p.cur.Pos
	kind := bindingKind(p.cur.Lit)
	if err := p.advance(); err != nil {
		return nil, err
	}
	name := p.cur.Lit
	if err := p.advance(); err != nil {
		return nil, err
	}
	decl := &ast.VarDeclaration{Base: ast.Base{Position: pos}, Kind: kind, Name: name}
	if p.curIs("=") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		init, err := p.parseExpression(precAssign)
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	return decl, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	stmt := &ast.ReturnStatement{Base: ast.Base{Position: pos}}
	if !p.curIs(";") && !p.curIs("}") {
		expr, err := p.parseExpression(precNone)
		if err != nil {
			return nil, err
		}
		stmt.Argument = expr
	}
	return stmt, p.skipSemi()
}

func (p *Parser) parseThrow() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression(precNone)
	if err != nil {
		return nil, err
	}
	return &ast.ThrowStatement{Base: ast.Base{Position: pos}, Argument: expr}, p.skipSemi()
}

func (p *Parser) parseTry() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.TryStatement{Base: ast.Base{Position: pos}, Block: block}
	if p.curIs("catch") {
		catchPos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		handler := &ast.CatchClause{Base: ast.Base{Position: catchPos}}
		if p.curIs("(") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			handler.Param = p.cur.Lit
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		handler.Body = body
		stmt.Handler = handler
	}
	if p.curIs("finally") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Finally = body
	}
	return stmt, nil
}

func (p *Parser) parseSwitch() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	disc, err := p.parseExpression(precNone)
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	stmt := &ast.SwitchStatement{Base: ast.Base{Position: pos}, Discriminant: disc}
	for !p.curIs("}") && p.cur.Type != lexer.TokEOF {
		casePos := p.cur.Pos
		var test ast.Expression
		if p.curIs("case") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseExpression(precNone)
			if err != nil {
				return nil, err
			}
			test = e
		} else if err := p.expect("default"); err != nil {
			return nil, err
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		c := &ast.SwitchCase{Base: ast.Base{Position: casePos}, Test: test}
		for !p.curIs("case") && !p.curIs("default") && !p.curIs("}") && p.cur.Type != lexer.TokEOF {
			s, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			c.Body = append(c.Body, s)
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	return stmt, p.expect("}")
}

func (p *Parser) parseParams() ([]ast.Param, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.curIs(")") {
		param := ast.Param{}
		if p.curIs("...") {
			param.IsRest = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		param.Name = p.cur.Lit
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.curIs("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			def, err := p.parseExpression(precAssign)
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
		if p.curIs(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return params, p.expect(")")
}

func (p *Parser) parseFunctionDeclaration(isAsync bool) (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name := p.cur.Lit
	if err := p.advance(); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDeclaration{Base: ast.Base{Position: pos}, Name: name, Params: params, Body: body, IsAsync: isAsync}, nil
}

func (p *Parser) parseImport() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	path := p.cur.Lit
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.ImportStatement{Base: ast.Base{Position: pos}, Path: path}, p.skipSemi()
}

func (p *Parser) parseClass() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name := p.cur.Lit
	if err := p.advance(); err != nil {
		return nil, err
	}
	decl := &ast.ClassDeclaration{Base: ast.Base{Position: pos}, Name: name}
	if p.curIs("extends") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		decl.SuperClass = p.cur.Lit
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	for !p.curIs("}") && p.cur.Type != lexer.TokEOF {
		if err := p.parseClassMember(decl); err != nil {
			return nil, err
		}
	}
	return decl, p.expect("}")
}

func (p *Parser) parseClassMember(decl *ast.ClassDeclaration) error {
	memberPos := p.cur.Pos
	vis := ast.Public
	isStatic := false
	for {
		switch {
		case p.curIs("public"):
			vis = ast.Public
		case p.curIs("private"):
			vis = ast.Private
		case p.curIs("protected"):
			vis = ast.Protected
		case p.curIs("static"):
			isStatic = true
		default:
			goto done
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
done:
	kind := ast.BindVar
	if p.curIs("var") || p.curIs("let") || p.curIs("const") {
		kind = bindingKind(p.cur.Lit)
		if err := p.advance(); err != nil {
			return err
		}
	}
	name := p.cur.Lit
	if err := p.advance(); err != nil {
		return err
	}
	if p.curIs("(") {
		params, err := p.parseParams()
		if err != nil {
			return err
		}
		body, err := p.parseBlock()
		if err != nil {
			return err
		}
		decl.Methods = append(decl.Methods, &ast.MethodDeclaration{
			Base: ast.Base{Position: memberPos}, Visibility: vis, IsStatic: isStatic,
			Name: name, Params: params, Body: body,
		})
		return nil
	}
	field := &ast.FieldDeclaration{Base: ast.Base{Position: memberPos}, Visibility: vis, IsStatic: isStatic, Kind: kind, Name: name}
	if p.curIs("=") {
		if err := p.advance(); err != nil {
			return err
		}
		init, err := p.parseExpression(precAssign)
		if err != nil {
			return err
		}
		field.Init = init
	}
	decl.Fields = append(decl.Fields, field)
	return p.skipSemi()
}
