package vm

/*
	ExprCompiler is the expression-precedence parser the statement compiler
	treats as an external collaborator: it consumes tokens from
	the shared Scanner, emits instructions into the shared InstructionList,
	allocates temporaries in whatever SymbolTable it's handed, and returns
	the stack offset holding the expression's result.

	Implemented here as precedence climbing over four binary levels
	(relational lowest, then + -, then * /, then ^ highest, right
	associative) plus unary minus, parenthesized sub-expressions, function
	calls in expression position, and substring slicing (s[a:b]).
*/

type ExprCompiler struct {
	scanner *Scanner
	instr   *InstructionList
	funcs   *FunctionTable
}

func NewExprCompiler(scanner *Scanner, instr *InstructionList, funcs *FunctionTable) *ExprCompiler {
	return &ExprCompiler{scanner: scanner, instr: instr, funcs: funcs}
}

var relOpcode = map[TokenKind]Opcode{
	TOK_LESS:      LESSER,
	TOK_GREATER:   GREATER,
	TOK_EQUAL:     EQ,
	TOK_LESSEQ:    LEQ,
	TOK_GREATEREQ: GEQ,
	TOK_NOTEQ:     NEQ,
}

var addOpcode = map[TokenKind]Opcode{
	TOK_PLUS:  ADD,
	TOK_MINUS: SUB,
}

var mulOpcode = map[TokenKind]Opcode{
	TOK_STAR:  MUL,
	TOK_SLASH: DIV,
}

// Parse compiles one expression, returning the stack offset of its result.
func (e *ExprCompiler) Parse(sym *SymbolTable) (int, error) {
	return e.parseRelational(sym)
}

func (e *ExprCompiler) parseRelational(sym *SymbolTable) (int, error) {
	lhs, err := e.parseAdditive(sym)
	if err != nil {
		return 0, err
	}
	tok, err := e.scanner.Next()
	if err != nil {
		return 0, err
	}
	op, ok := relOpcode[tok.Kind]
	if !ok {
		e.scanner.ReturnToken(tok)
		return lhs, nil
	}
	rhs, err := e.parseAdditive(sym)
	if err != nil {
		return 0, err
	}
	_, dst := sym.NewTemp()
	e.emit3(op, dst, lhs, rhs, tok.Line)
	return dst, nil
}

func (e *ExprCompiler) parseAdditive(sym *SymbolTable) (int, error) {
	lhs, err := e.parseMultiplicative(sym)
	if err != nil {
		return 0, err
	}
	for {
		tok, err := e.scanner.Next()
		if err != nil {
			return 0, err
		}
		op, ok := addOpcode[tok.Kind]
		if !ok {
			e.scanner.ReturnToken(tok)
			return lhs, nil
		}
		rhs, err := e.parseMultiplicative(sym)
		if err != nil {
			return 0, err
		}
		_, dst := sym.NewTemp()
		e.emit3(op, dst, lhs, rhs, tok.Line)
		lhs = dst
	}
}

func (e *ExprCompiler) parseMultiplicative(sym *SymbolTable) (int, error) {
	lhs, err := e.parsePower(sym)
	if err != nil {
		return 0, err
	}
	for {
		tok, err := e.scanner.Next()
		if err != nil {
			return 0, err
		}
		op, ok := mulOpcode[tok.Kind]
		if !ok {
			e.scanner.ReturnToken(tok)
			return lhs, nil
		}
		rhs, err := e.parsePower(sym)
		if err != nil {
			return 0, err
		}
		_, dst := sym.NewTemp()
		e.emit3(op, dst, lhs, rhs, tok.Line)
		lhs = dst
	}
}

func (e *ExprCompiler) parsePower(sym *SymbolTable) (int, error) {
	lhs, err := e.parseUnary(sym)
	if err != nil {
		return 0, err
	}
	tok, err := e.scanner.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TOK_CARET {
		e.scanner.ReturnToken(tok)
		return lhs, nil
	}
	// Right associative: recurse back into parsePower for the exponent.
	rhs, err := e.parsePower(sym)
	if err != nil {
		return 0, err
	}
	_, dst := sym.NewTemp()
	e.emit3(POW, dst, lhs, rhs, tok.Line)
	return dst, nil
}

func (e *ExprCompiler) parseUnary(sym *SymbolTable) (int, error) {
	tok, err := e.scanner.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind == TOK_MINUS {
		operand, err := e.parseUnary(sym)
		if err != nil {
			return 0, err
		}
		_, zero := sym.NewTemp()
		e.instr.InsertLast(Instruction{Op: MOV, Off1: zero, Lit: NumberValue(0)}, tok.Line)
		_, dst := sym.NewTemp()
		e.emit3(SUB, dst, zero, operand, tok.Line)
		return dst, nil
	}
	e.scanner.ReturnToken(tok)
	return e.parsePrimary(sym)
}

func (e *ExprCompiler) parsePrimary(sym *SymbolTable) (int, error) {
	tok, err := e.scanner.Next()
	if err != nil {
		return 0, err
	}

	switch tok.Kind {
	case TOK_NUMBER:
		_, dst := sym.NewTemp()
		e.instr.InsertLast(Instruction{Op: MOV, Off1: dst, Lit: NumberValue(tok.Num)}, tok.Line)
		return dst, nil
	case TOK_STRING:
		_, dst := sym.NewTemp()
		e.instr.InsertLast(Instruction{Op: MOV, Off1: dst, Lit: StringValue(tok.Text)}, tok.Line)
		return dst, nil
	case TOK_LOGIC:
		_, dst := sym.NewTemp()
		e.instr.InsertLast(Instruction{Op: MOV, Off1: dst, Lit: BoolValue(tok.Bool)}, tok.Line)
		return dst, nil
	case TOK_NIL:
		_, dst := sym.NewTemp()
		e.instr.InsertLast(Instruction{Op: MOV, Off1: dst, Lit: NilValue()}, tok.Line)
		return dst, nil
	case TOK_BRACKET_LEFT:
		inner, err := e.Parse(sym)
		if err != nil {
			return 0, err
		}
		closing, err := e.scanner.Next()
		if err != nil {
			return 0, err
		}
		if closing.Kind != TOK_BRACKET_RIGHT {
			return 0, errAtLine(KindSyntax, closing.Line, "expected ')'")
		}
		return inner, nil
	case TOK_IDENTIFIER:
		return e.parseIdentifierExpr(sym, tok)
	default:
		return 0, errAtLine(KindSyntax, tok.Line, "unexpected token in expression")
	}
}

func (e *ExprCompiler) parseIdentifierExpr(sym *SymbolTable, tok Token) (int, error) {
	next, err := e.scanner.Next()
	if err != nil {
		return 0, err
	}

	if next.Kind == TOK_BRACKET_LEFT {
		// Function call in expression position.
		fd, ok := e.funcs.Lookup(tok.Text)
		if !ok {
			return 0, errAtLine(KindSemanticsUndefinedFunction, tok.Line, "call to undefined function %q", tok.Text)
		}
		return e.parseCallArgs(sym, fd, tok.Line)
	}
	e.scanner.ReturnToken(next)

	entry, ok := sym.Lookup(tok.Text)
	if !ok {
		// Not a variable -- a bare reference to a function name is only
		// meaningful as typeOf's argument, but since enforcing that
		// narrower rule would require threading call-site context through
		// the expression grammar, any bare function name is accepted here
		// as a Function value (typeOf returns its type code; print and
		// string concatenation render it as the function's name).
		if fd, isFn := e.funcs.Lookup(tok.Text); isFn {
			_, dst := sym.NewTemp()
			e.instr.InsertLast(Instruction{Op: MOV, Off1: dst, Lit: FunctionValue(fd)}, tok.Line)
			return dst, nil
		}
		return 0, errAtLine(KindSemanticsUndefinedVariable, tok.Line, "undefined variable %q", tok.Text)
	}
	if entry.kind != symVar {
		return 0, errAtLine(KindSemanticsOther, tok.Line, "%q is not a value", tok.Text)
	}

	// Optional substring slice: identifier '[' [expr] ':' [expr] ']'
	peek, err := e.scanner.Next()
	if err != nil {
		return 0, err
	}
	if peek.Kind != TOK_SQUARE_BRACKET_LEFT {
		e.scanner.ReturnToken(peek)
		return entry.offset, nil
	}
	return e.parseSubstring(sym, entry.offset, tok.Line)
}

func (e *ExprCompiler) parseSubstring(sym *SymbolTable, strOffset, line int) (int, error) {
	var fromOff, toOff *int

	tok, err := e.scanner.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TOK_COLON {
		e.scanner.ReturnToken(tok)
		off, err := e.Parse(sym)
		if err != nil {
			return 0, err
		}
		fromOff = &off
		tok, err = e.scanner.Next()
		if err != nil {
			return 0, err
		}
		if tok.Kind != TOK_COLON {
			return 0, errAtLine(KindSyntax, tok.Line, "expected ':' in substring range")
		}
	}

	tok, err = e.scanner.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TOK_SQUARE_BRACKET_RIGHT {
		e.scanner.ReturnToken(tok)
		off, err := e.Parse(sym)
		if err != nil {
			return 0, err
		}
		toOff = &off
		tok, err = e.scanner.Next()
		if err != nil {
			return 0, err
		}
		if tok.Kind != TOK_SQUARE_BRACKET_RIGHT {
			return 0, errAtLine(KindSyntax, tok.Line, "expected ']' closing substring range")
		}
	}

	_, dst := sym.NewTemp()
	e.instr.InsertLast(Instruction{
		Op:      SUBSTRING,
		Off1:    dst,
		Off2:    strOffset,
		FromOff: fromOff,
		ToOff:   toOff,
	}, line)
	return dst, nil
}

func (e *ExprCompiler) parseCallArgs(sym *SymbolTable, fd *FunctionDescriptor, line int) (int, error) {
	args := make([]int, 0, fd.ParamsCount)
	tok, err := e.scanner.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TOK_BRACKET_RIGHT {
		e.scanner.ReturnToken(tok)
		for {
			argOff, err := e.Parse(sym)
			if err != nil {
				return 0, err
			}
			args = append(args, argOff)
			tok, err = e.scanner.Next()
			if err != nil {
				return 0, err
			}
			if tok.Kind == TOK_COMMA {
				continue
			}
			if tok.Kind == TOK_BRACKET_RIGHT {
				break
			}
			return 0, errAtLine(KindSyntax, tok.Line, "expected ',' or ')' in call arguments")
		}
	}

	return emitCall(e.instr, sym, fd, args, line)
}

func (e *ExprCompiler) emit3(op Opcode, dst, lhs, rhs, line int) {
	e.instr.InsertLast(Instruction{Op: op, Off1: dst, Off2: lhs, Off3: rhs}, line)
}
