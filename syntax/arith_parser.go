package syntax

// parseArithUntil parses an arithmetic expression starting at the
// current position and stops before the given terminator sequence
// (e.g. "))" for $((...)), ";" for a for((;;)) clause header). It
// implements the full C-style precedence table from spec.md §4.4,
// lowest to highest: comma, assignment, ternary, ||, &&, |, ^, &,
// ==/!=, relational, shift, additive, multiplicative, power, unary,
// postfix, primary.
func (p *parser) parseArithUntil(term string) ArithExpr {
	p.arithSkip()
	if p.arithAtTerm(term) {
		return nil
	}
	return p.arithComma(term)
}

func (p *parser) arithSkip() {
	for !p.eof() {
		switch p.peekRune() {
		case ' ', '\t', '\n':
			p.advance()
		default:
			return
		}
	}
}

func (p *parser) arithAtTerm(term string) bool {
	p.arithSkip()
	if p.eof() {
		return true
	}
	for i, r := range term {
		if p.peekAt(i) != r {
			return false
		}
	}
	return true
}

func (p *parser) arithComma(term string) ArithExpr {
	x := p.arithAssign(term)
	for {
		p.arithSkip()
		if p.peekRune() == ',' && !p.arithAtTerm(term) {
			pos := p.here()
			p.advance()
			y := p.arithAssign(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithComma, X: x, Y: y}
			continue
		}
		return x
	}
}

var arithAssignOps = []struct {
	tok string
	op  ArithAssignOp
}{
	{"+=", ArithAssignAdd}, {"-=", ArithAssignSub}, {"*=", ArithAssignMul},
	{"/=", ArithAssignQuo}, {"%=", ArithAssignRem}, {"&=", ArithAssignAnd},
	{"|=", ArithAssignOr}, {"^=", ArithAssignXor}, {"<<=", ArithAssignShl},
	{">>=", ArithAssignShr}, {"=", ArithAssign},
}

func (p *parser) arithAssign(term string) ArithExpr {
	save := *p
	pos := p.here()
	if name := p.scanName(); name != "" {
		p.arithSkip()
		for _, cand := range arithAssignOps {
			if p.peekSeq(cand.tok) && p.peekAt(len(cand.tok)) != '=' {
				for range cand.tok {
					p.advance()
				}
				rhs := p.arithAssign(term)
				return &ArithAssignExpr{partPos: partPos{P: pos}, Op: cand.op, Name: name, X: rhs}
			}
		}
	}
	*p = save
	return p.arithTernary(term)
}

func (p *parser) arithTernary(term string) ArithExpr {
	cond := p.arithLogOr(term)
	p.arithSkip()
	if p.peekRune() == '?' {
		pos := p.here()
		p.advance()
		then := p.arithAssign(term)
		p.arithSkip()
		if p.peekRune() == ':' {
			p.advance()
		}
		els := p.arithAssign(term)
		return &ArithTernaryExpr{partPos: partPos{P: pos}, Cond: cond, Then: then, Else: els}
	}
	return cond
}

func (p *parser) arithLogOr(term string) ArithExpr {
	x := p.arithLogAnd(term)
	for {
		p.arithSkip()
		if p.peekSeq("||") {
			pos := p.here()
			p.advance()
			p.advance()
			y := p.arithLogAnd(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithLOr, X: x, Y: y}
			continue
		}
		return x
	}
}

func (p *parser) arithLogAnd(term string) ArithExpr {
	x := p.arithBitOr(term)
	for {
		p.arithSkip()
		if p.peekSeq("&&") {
			pos := p.here()
			p.advance()
			p.advance()
			y := p.arithBitOr(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithLAnd, X: x, Y: y}
			continue
		}
		return x
	}
}

func (p *parser) arithBitOr(term string) ArithExpr {
	x := p.arithBitXor(term)
	for {
		p.arithSkip()
		if p.peekRune() == '|' && p.peekAt(1) != '|' {
			pos := p.here()
			p.advance()
			y := p.arithBitXor(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithOr, X: x, Y: y}
			continue
		}
		return x
	}
}

func (p *parser) arithBitXor(term string) ArithExpr {
	x := p.arithBitAnd(term)
	for {
		p.arithSkip()
		if p.peekRune() == '^' {
			pos := p.here()
			p.advance()
			y := p.arithBitAnd(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithXor, X: x, Y: y}
			continue
		}
		return x
	}
}

func (p *parser) arithBitAnd(term string) ArithExpr {
	x := p.arithEquality(term)
	for {
		p.arithSkip()
		if p.peekRune() == '&' && p.peekAt(1) != '&' {
			pos := p.here()
			p.advance()
			y := p.arithEquality(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithAnd, X: x, Y: y}
			continue
		}
		return x
	}
}

func (p *parser) arithEquality(term string) ArithExpr {
	x := p.arithRelational(term)
	for {
		p.arithSkip()
		switch {
		case p.peekSeq("=="):
			pos := p.here()
			p.advance()
			p.advance()
			y := p.arithRelational(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithEql, X: x, Y: y}
		case p.peekSeq("!="):
			pos := p.here()
			p.advance()
			p.advance()
			y := p.arithRelational(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithNeq, X: x, Y: y}
		default:
			return x
		}
	}
}

func (p *parser) arithRelational(term string) ArithExpr {
	x := p.arithShift(term)
	for {
		p.arithSkip()
		var op ArithBinaryOp
		n := 1
		switch {
		case p.peekSeq("<="):
			op, n = ArithLeq, 2
		case p.peekSeq(">="):
			op, n = ArithGeq, 2
		case p.peekRune() == '<' && p.peekAt(1) != '<':
			op = ArithLss
		case p.peekRune() == '>' && p.peekAt(1) != '>':
			op = ArithGtr
		default:
			return x
		}
		pos := p.here()
		for i := 0; i < n; i++ {
			p.advance()
		}
		y := p.arithShift(term)
		x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: op, X: x, Y: y}
	}
}

func (p *parser) arithShift(term string) ArithExpr {
	x := p.arithAdditive(term)
	for {
		p.arithSkip()
		switch {
		case p.peekSeq("<<"):
			pos := p.here()
			p.advance()
			p.advance()
			y := p.arithAdditive(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithShl, X: x, Y: y}
		case p.peekSeq(">>"):
			pos := p.here()
			p.advance()
			p.advance()
			y := p.arithAdditive(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithShr, X: x, Y: y}
		default:
			return x
		}
	}
}

func (p *parser) arithAdditive(term string) ArithExpr {
	x := p.arithMultiplicative(term)
	for {
		p.arithSkip()
		switch p.peekRune() {
		case '+':
			if p.peekAt(1) == '+' {
				return x
			}
			pos := p.here()
			p.advance()
			y := p.arithMultiplicative(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithAdd, X: x, Y: y}
		case '-':
			if p.peekAt(1) == '-' {
				return x
			}
			pos := p.here()
			p.advance()
			y := p.arithMultiplicative(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithSub, X: x, Y: y}
		default:
			return x
		}
	}
}

func (p *parser) arithMultiplicative(term string) ArithExpr {
	x := p.arithPower(term)
	for {
		p.arithSkip()
		switch {
		case p.peekRune() == '*' && p.peekAt(1) != '*':
			pos := p.here()
			p.advance()
			y := p.arithPower(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithMul, X: x, Y: y}
		case p.peekRune() == '/':
			pos := p.here()
			p.advance()
			y := p.arithPower(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithQuo, X: x, Y: y}
		case p.peekRune() == '%':
			pos := p.here()
			p.advance()
			y := p.arithPower(term)
			x = &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithRem, X: x, Y: y}
		default:
			return x
		}
	}
}

func (p *parser) arithPower(term string) ArithExpr {
	x := p.arithUnary(term)
	p.arithSkip()
	if p.peekSeq("**") {
		pos := p.here()
		p.advance()
		p.advance()
		y := p.arithPower(term) // right-associative
		return &ArithBinaryExpr{partPos: partPos{P: pos}, Op: ArithPow, X: x, Y: y}
	}
	return x
}

func (p *parser) arithUnary(term string) ArithExpr {
	p.arithSkip()
	pos := p.here()
	switch {
	case p.peekSeq("++"):
		p.advance()
		p.advance()
		x := p.arithUnary(term)
		return &ArithUnaryExpr{partPos: partPos{P: pos}, Op: ArithIncPre, X: x}
	case p.peekSeq("--"):
		p.advance()
		p.advance()
		x := p.arithUnary(term)
		return &ArithUnaryExpr{partPos: partPos{P: pos}, Op: ArithDecPre, X: x}
	case p.peekRune() == '!':
		p.advance()
		x := p.arithUnary(term)
		return &ArithUnaryExpr{partPos: partPos{P: pos}, Op: ArithNot, X: x}
	case p.peekRune() == '~':
		p.advance()
		x := p.arithUnary(term)
		return &ArithUnaryExpr{partPos: partPos{P: pos}, Op: ArithBitNot, X: x}
	case p.peekRune() == '+':
		p.advance()
		x := p.arithUnary(term)
		return &ArithUnaryExpr{partPos: partPos{P: pos}, Op: ArithPlus, X: x}
	case p.peekRune() == '-':
		p.advance()
		x := p.arithUnary(term)
		return &ArithUnaryExpr{partPos: partPos{P: pos}, Op: ArithMinus, X: x}
	}
	return p.arithPostfix(term)
}

func (p *parser) arithPostfix(term string) ArithExpr {
	x := p.arithPrimary(term)
	p.arithSkip()
	pos := p.here()
	if p.peekSeq("++") {
		p.advance()
		p.advance()
		return &ArithUnaryExpr{partPos: partPos{P: pos}, Op: ArithIncPost, X: x}
	}
	if p.peekSeq("--") {
		p.advance()
		p.advance()
		return &ArithUnaryExpr{partPos: partPos{P: pos}, Op: ArithDecPost, X: x}
	}
	return x
}

func (p *parser) arithPrimary(term string) ArithExpr {
	p.arithSkip()
	pos := p.here()
	switch {
	case p.peekRune() == '(':
		p.advance()
		x := p.arithComma(")")
		p.arithSkip()
		if p.peekRune() == ')' {
			p.advance()
		}
		return &ArithParenExpr{partPos: partPos{P: pos}, X: x}
	case p.peekRune() == '$':
		// "$name" or "$((...))" nested form inside arithmetic context
		p.advance()
		if p.peekRune() == '(' {
			p.advance()
			x := p.arithComma(")")
			if p.peekRune() == ')' {
				p.advance()
			}
			return x
		}
		name := p.scanName()
		return &ArithVar{partPos: partPos{P: pos}, Name: name}
	case p.peekRune() >= '0' && p.peekRune() <= '9':
		start := p.pos
		for !p.eof() && (isIdentRune(p.peekRune()) || p.peekRune() == '#') {
			p.advance()
		}
		return &ArithLit{partPos: partPos{P: pos}, Value: string(p.src[start:p.pos])}
	default:
		name := p.scanName()
		if name == "" {
			if !p.eof() {
				p.advance()
			}
			return &ArithLit{partPos: partPos{P: pos}, Value: "0"}
		}
		return &ArithVar{partPos: partPos{P: pos}, Name: name}
	}
}
