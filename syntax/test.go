package syntax

// TestExpr is the node type for [[ ... ]] conditional expressions, per
// spec.md §3/§4.4.
type TestExpr interface {
	Node
	testNode()
}

// TestUnaryOp enumerates the unary predicates: -f -d -z -n -e -r -w -x
// -s -L and friends.
type TestUnaryOp string

type TestUnaryExpr struct {
	partPos
	Op TestUnaryOp
	X  *Word
}

func (*TestUnaryExpr) testNode() {}

// TestBinaryOp enumerates the binary predicates: = == != < > -eq -ne
// -lt -le -gt -ge =~ and the plain "==" pattern-match form.
type TestBinaryOp string

type TestBinaryExpr struct {
	partPos
	Op   TestBinaryOp
	X, Y *Word
}

func (*TestBinaryExpr) testNode() {}

type TestNotExpr struct {
	partPos
	X TestExpr
}

func (*TestNotExpr) testNode() {}

type TestAndExpr struct {
	partPos
	X, Y TestExpr
}

func (*TestAndExpr) testNode() {}

type TestOrExpr struct {
	partPos
	X, Y TestExpr
}

func (*TestOrExpr) testNode() {}

type TestParenExpr struct {
	partPos
	X TestExpr
}

func (*TestParenExpr) testNode() {}

// TestWordExpr is a single bare word used as a boolean test ("[[ $x ]]"
// is true when $x expands to a non-empty string).
type TestWordExpr struct {
	partPos
	X *Word
}

func (*TestWordExpr) testNode() {}
