package vm

/*
	Compiler drives two passes over the token stream: pass 1 only
	discovers function headers (name, arity) so forward calls resolve;
	pass 2 walks the whole program again and emits instructions, using
	ExprCompiler as a collaborator for anything to the right of an
	assignment or inside a condition.

	Labels for control flow (L_skip, L_end, L_cond) are allocated here as
	anonymous Label cells -- they have no source-level name, unlike labels
	a script could jump to directly (this language has none), so there's
	no need to route them through a SymbolTable the way a named label
	would be.
*/

type Compiler struct {
	list    *InstructionList
	funcs   *FunctionTable
	scanner *Scanner
	exprc   *ExprCompiler
}

// Compile runs both passes over source and returns the finished
// instruction list and function table, ready for Interp.
func Compile(source string) (*InstructionList, *FunctionTable, error) {
	c := &Compiler{
		list:  NewInstructionList(),
		funcs: NewFunctionTable(),
	}
	registerBuiltins(c.funcs)

	if err := c.pass1(source); err != nil {
		return nil, nil, err
	}

	c.scanner = NewScanner(source)
	c.exprc = NewExprCompiler(c.scanner, c.list, c.funcs)

	mainFD, err := c.funcs.Declare(MainFunctionName, -1)
	if err != nil {
		return nil, nil, err
	}
	mainFD.Symbols = NewSymbolTable()
	mainFD.endLabel = NewLabel("$Lmain_end")
	mainFD.FirstInstruction = c.list.InsertLast(Instruction{Op: LABEL}, 0)

	if err := c.compileStatementList(mainFD.Symbols, mainFD, true, []TokenKind{TOK_EOF}); err != nil {
		return nil, nil, err
	}

	endNode := c.list.InsertLast(Instruction{Op: LABEL}, 0)
	mainFD.endLabel.Bind(endNode)
	mainFD.LastInstruction = endNode
	mainFD.LocalCount = mainFD.Symbols.itemCount
	c.list.InsertLast(Instruction{Op: HALT}, 0)

	return c.list, c.funcs, nil
}

// pass1 scans only `function name(params) ... end` headers, registering
// each in the function table with its arity. Nested if/while blocks are
// skipped by counting their own `end` terminators so a function's `end`
// isn't mistaken for an inner block's.
func (c *Compiler) pass1(source string) error {
	s := NewScanner(source)
	for {
		tok, err := s.Next()
		if err != nil {
			return err
		}
		if tok.Kind == TOK_EOF {
			return nil
		}
		if tok.Kind != TOK_FUNCTION {
			continue
		}

		nameTok, err := s.Next()
		if err != nil {
			return err
		}
		if nameTok.Kind != TOK_IDENTIFIER {
			return errAtLine(KindSyntax, nameTok.Line, "expected function name")
		}

		paramsCount, err := skipParamList(s)
		if err != nil {
			return err
		}

		if _, err := c.funcs.Declare(nameTok.Text, paramsCount); err != nil {
			return errAtLine(KindSemanticsOther, nameTok.Line, "function %q already defined", nameTok.Text)
		}

		if err := skipBlockBody(s); err != nil {
			return err
		}
	}
}

// skipParamList consumes '(' name (',' name)* ')' and returns the count.
func skipParamList(s *Scanner) (int, error) {
	lp, err := s.Next()
	if err != nil {
		return 0, err
	}
	if lp.Kind != TOK_BRACKET_LEFT {
		return 0, errAtLine(KindSyntax, lp.Line, "expected '(' after function name")
	}
	first, err := s.Next()
	if err != nil {
		return 0, err
	}
	if first.Kind == TOK_BRACKET_RIGHT {
		return 0, nil
	}
	s.ReturnToken(first)
	count := 0
	for {
		p, err := s.Next()
		if err != nil {
			return 0, err
		}
		if p.Kind != TOK_IDENTIFIER {
			return 0, errAtLine(KindSyntax, p.Line, "expected parameter name")
		}
		count++
		sep, err := s.Next()
		if err != nil {
			return 0, err
		}
		if sep.Kind == TOK_COMMA {
			continue
		}
		if sep.Kind == TOK_BRACKET_RIGHT {
			return count, nil
		}
		return 0, errAtLine(KindSyntax, sep.Line, "expected ',' or ')' in parameter list")
	}
}

// skipBlockBody consumes tokens until the `end` matching the block just
// opened, tracking nested if/while blocks (functions do not nest).
func skipBlockBody(s *Scanner) error {
	depth := 1
	for depth > 0 {
		t, err := s.Next()
		if err != nil {
			return err
		}
		switch t.Kind {
		case TOK_IF, TOK_WHILE:
			depth++
		case TOK_END:
			depth--
		case TOK_EOF:
			return errAtLine(KindSyntax, t.Line, "unexpected end of file inside function body")
		}
	}
	return nil
}

// compileStatementList compiles statements until a token from terminators
// is seen (which is pushed back, not consumed) or TOK_EOF when TOK_EOF
// itself is a valid terminator.
func (c *Compiler) compileStatementList(sym *SymbolTable, fd *FunctionDescriptor, isMain bool, terminators []TokenKind) error {
	for {
		tok, err := c.scanner.Next()
		if err != nil {
			return err
		}
		if tok.Kind == TOK_EOL {
			continue
		}
		if containsKind(terminators, tok.Kind) {
			c.scanner.ReturnToken(tok)
			return nil
		}
		if err := c.compileStatement(sym, fd, isMain, tok); err != nil {
			return err
		}
	}
}

func containsKind(kinds []TokenKind, k TokenKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

func (c *Compiler) compileStatement(sym *SymbolTable, fd *FunctionDescriptor, isMain bool, tok Token) error {
	switch tok.Kind {
	case TOK_FUNCTION:
		return c.compileFunctionDef(tok.Line)
	case TOK_IF:
		return c.compileIf(sym, fd, isMain, tok.Line)
	case TOK_WHILE:
		return c.compileWhile(sym, fd, isMain, tok.Line)
	case TOK_RETURN:
		return c.compileReturn(sym, fd, isMain, tok.Line)
	case TOK_IDENTIFIER:
		return c.compileIdentifierStatement(sym, tok)
	default:
		return errAtLine(KindSyntax, tok.Line, "unexpected token at start of statement")
	}
}

// compileFunctionDef compiles a previously-declared (pass 1) function's
// body, header already known from pass 1.
func (c *Compiler) compileFunctionDef(line int) error {
	nameTok, err := c.scanner.Next()
	if err != nil {
		return err
	}
	if nameTok.Kind != TOK_IDENTIFIER {
		return errAtLine(KindSyntax, nameTok.Line, "expected function name")
	}
	fd, ok := c.funcs.Lookup(nameTok.Text)
	if !ok {
		return errAtLine(KindInternal, nameTok.Line, "function %q missing from pass 1", nameTok.Text)
	}

	paramNames, err := readParamNames(c.scanner)
	if err != nil {
		return err
	}

	fd.Symbols = NewSymbolTable()
	for i, pname := range paramNames {
		fd.Symbols.DeclareVarAt(pname, -(len(paramNames)+2)+i)
	}
	fd.Symbols.DeclareVarAt(RetvalName, RetvalOffset)
	fd.endLabel = NewLabel("$Lend_" + fd.Name)

	lskip := NewLabel("$Lskip_" + fd.Name)
	c.list.InsertLast(Instruction{Op: GOTO, Label: lskip}, line)

	fd.FirstInstruction = c.list.InsertLast(Instruction{Op: LABEL}, line)

	if err := c.compileStatementList(fd.Symbols, fd, false, []TokenKind{TOK_END}); err != nil {
		return err
	}
	endTok, err := c.scanner.Next()
	if err != nil {
		return err
	}
	if endTok.Kind != TOK_END {
		return errAtLine(KindSyntax, endTok.Line, "expected 'end' closing function %q", fd.Name)
	}

	endNode := c.list.InsertLast(Instruction{Op: LABEL}, endTok.Line)
	fd.endLabel.Bind(endNode)
	fd.LastInstruction = endNode
	fd.LocalCount = fd.Symbols.itemCount

	c.list.InsertLast(Instruction{Op: RET, RetCount: fd.ParamsCount}, endTok.Line)

	skipNode := c.list.InsertLast(Instruction{Op: LABEL}, endTok.Line)
	lskip.Bind(skipNode)
	return nil
}

func readParamNames(s *Scanner) ([]string, error) {
	lp, err := s.Next()
	if err != nil {
		return nil, err
	}
	if lp.Kind != TOK_BRACKET_LEFT {
		return nil, errAtLine(KindSyntax, lp.Line, "expected '(' after function name")
	}
	first, err := s.Next()
	if err != nil {
		return nil, err
	}
	if first.Kind == TOK_BRACKET_RIGHT {
		return nil, nil
	}
	s.ReturnToken(first)
	var names []string
	for {
		p, err := s.Next()
		if err != nil {
			return nil, err
		}
		if p.Kind != TOK_IDENTIFIER {
			return nil, errAtLine(KindSyntax, p.Line, "expected parameter name")
		}
		names = append(names, p.Text)
		sep, err := s.Next()
		if err != nil {
			return nil, err
		}
		if sep.Kind == TOK_COMMA {
			continue
		}
		if sep.Kind == TOK_BRACKET_RIGHT {
			return names, nil
		}
		return nil, errAtLine(KindSyntax, sep.Line, "expected ',' or ')' in parameter list")
	}
}

func (c *Compiler) compileIf(sym *SymbolTable, fd *FunctionDescriptor, isMain bool, line int) error {
	cond, err := c.exprc.Parse(sym)
	if err != nil {
		return err
	}
	lelse := NewLabel("$Lelse")
	c.list.InsertLast(Instruction{Op: IFGOTO, Label: lelse, Off2: cond}, line)

	if err := c.compileStatementList(sym, fd, isMain, []TokenKind{TOK_ELSE, TOK_END}); err != nil {
		return err
	}
	tok, err := c.scanner.Next()
	if err != nil {
		return err
	}

	if tok.Kind == TOK_ELSE {
		lend := NewLabel("$Lendif")
		c.list.InsertLast(Instruction{Op: GOTO, Label: lend}, tok.Line)
		elseNode := c.list.InsertLast(Instruction{Op: LABEL}, tok.Line)
		lelse.Bind(elseNode)

		if err := c.compileStatementList(sym, fd, isMain, []TokenKind{TOK_END}); err != nil {
			return err
		}
		endTok, err := c.scanner.Next()
		if err != nil {
			return err
		}
		if endTok.Kind != TOK_END {
			return errAtLine(KindSyntax, endTok.Line, "expected 'end' closing if")
		}
		endNode := c.list.InsertLast(Instruction{Op: LABEL}, endTok.Line)
		lend.Bind(endNode)
		return nil
	}

	// tok.Kind == TOK_END, no else branch.
	endNode := c.list.InsertLast(Instruction{Op: LABEL}, tok.Line)
	lelse.Bind(endNode)
	return nil
}

func (c *Compiler) compileWhile(sym *SymbolTable, fd *FunctionDescriptor, isMain bool, line int) error {
	lcond := NewLabel("$Lcond")
	condNode := c.list.InsertLast(Instruction{Op: LABEL}, line)
	lcond.Bind(condNode)

	cond, err := c.exprc.Parse(sym)
	if err != nil {
		return err
	}
	lend := NewLabel("$Lwend")
	c.list.InsertLast(Instruction{Op: IFGOTO, Label: lend, Off2: cond}, line)

	if err := c.compileStatementList(sym, fd, isMain, []TokenKind{TOK_END}); err != nil {
		return err
	}
	endTok, err := c.scanner.Next()
	if err != nil {
		return err
	}
	if endTok.Kind != TOK_END {
		return errAtLine(KindSyntax, endTok.Line, "expected 'end' closing while")
	}
	c.list.InsertLast(Instruction{Op: GOTO, Label: lcond}, endTok.Line)
	endNode := c.list.InsertLast(Instruction{Op: LABEL}, endTok.Line)
	lend.Bind(endNode)
	return nil
}

func (c *Compiler) compileReturn(sym *SymbolTable, fd *FunctionDescriptor, isMain bool, line int) error {
	roff, err := c.exprc.Parse(sym)
	if err != nil {
		return err
	}
	if !isMain {
		c.list.InsertLast(Instruction{Op: MOV_STACK, Off1: RetvalOffset, Off2: roff}, line)
	}
	c.list.InsertLast(Instruction{Op: GOTO, Label: fd.endLabel}, line)
	return nil
}

// compileIdentifierStatement handles both `id = rhs` and a bare call used
// as a statement (its result temp is simply left unreferenced).
func (c *Compiler) compileIdentifierStatement(sym *SymbolTable, identTok Token) error {
	next, err := c.scanner.Next()
	if err != nil {
		return err
	}

	if next.Kind == TOK_ASSIGN {
		idOff := sym.DeclareVar(identTok.Text)
		roff, err := c.exprc.Parse(sym)
		if err != nil {
			return err
		}
		c.list.InsertLast(Instruction{Op: MOV_STACK, Off1: idOff, Off2: roff}, identTok.Line)
		return nil
	}

	if next.Kind == TOK_BRACKET_LEFT {
		fd, ok := c.funcs.Lookup(identTok.Text)
		if !ok {
			return errAtLine(KindSemanticsUndefinedFunction, identTok.Line, "call to undefined function %q", identTok.Text)
		}
		_, err := c.exprc.parseCallArgs(sym, fd, identTok.Line)
		return err
	}

	return errAtLine(KindSyntax, next.Line, "expected '=' or '(' after identifier")
}

// emitCall compiles the call-site protocol: push arguments left-to-right
// (padding fixed-arity calls with nil, appending the live argument count
// for variadic built-ins like print), reserve the return slot, emit CALL,
// and POP the result into a fresh temporary.
func emitCall(list *InstructionList, sym *SymbolTable, fd *FunctionDescriptor, args []int, line int) (int, error) {
	if fd.Variadic {
		for _, a := range args {
			list.InsertLast(Instruction{Op: PUSH_STACK, Off1: a}, line)
		}
		list.InsertLast(Instruction{Op: PUSH, Lit: NumberValue(float64(len(args)))}, line)
		list.InsertLast(Instruction{Op: PUSH, Lit: NilValue()}, line)
		list.InsertLast(Instruction{Op: CALL, Fn: fd, RetCount: len(args) + 1}, line)
		_, dst := sym.NewTemp()
		list.InsertLast(Instruction{Op: POP, Off1: dst}, line)
		return dst, nil
	}

	if len(args) > fd.ParamsCount {
		return 0, errAtLine(KindSemanticsOther, line, "too many arguments in call to %q", fd.Name)
	}
	for _, a := range args {
		list.InsertLast(Instruction{Op: PUSH_STACK, Off1: a}, line)
	}
	for i := len(args); i < fd.ParamsCount; i++ {
		list.InsertLast(Instruction{Op: PUSH, Lit: NilValue()}, line)
	}
	list.InsertLast(Instruction{Op: PUSH, Lit: NilValue()}, line)
	list.InsertLast(Instruction{Op: CALL, Fn: fd, RetCount: fd.ParamsCount}, line)
	_, dst := sym.NewTemp()
	list.InsertLast(Instruction{Op: POP, Off1: dst}, line)
	return dst, nil
}
