package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandboxshell/vsh/syntax"
)

// EvalArith evaluates an arithmetic expression tree, per spec.md §4.4:
// all values are 64-bit signed integers with wraparound overflow, and
// the only externally visible side effect is variable assignment.
func EvalArith(cfg *Config, x syntax.ArithExpr) (int64, error) {
	if x == nil {
		return 0, nil
	}
	switch n := x.(type) {
	case *syntax.ArithLit:
		return parseArithInt(n.Value)
	case *syntax.ArithVar:
		return arithVarValue(cfg, n.Name)
	case *syntax.ArithParenExpr:
		return EvalArith(cfg, n.X)
	case *syntax.ArithUnaryExpr:
		return evalArithUnary(cfg, n)
	case *syntax.ArithBinaryExpr:
		return evalArithBinary(cfg, n)
	case *syntax.ArithAssignExpr:
		return evalArithAssign(cfg, n)
	case *syntax.ArithTernaryExpr:
		c, err := EvalArith(cfg, n.Cond)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return EvalArith(cfg, n.Then)
		}
		return EvalArith(cfg, n.Else)
	default:
		return 0, fmt.Errorf("unsupported arithmetic node %T", x)
	}
}

// parseArithInt accepts decimal, 0x.../0X... hex, leading-0 octal, and
// BASE#NUM forms, per spec.md §4.4. BASE#NUM goes through
// strconv.ParseInt, so bases 2 through 36 are accepted and larger bases
// are rejected with an error.
func parseArithInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var v int64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseInt(s[2:], 16, 64)
	case strings.Contains(s, "#"):
		parts := strings.SplitN(s, "#", 2)
		base, perr := strconv.Atoi(parts[0])
		if perr != nil {
			return 0, perr
		}
		v, err = strconv.ParseInt(parts[1], base, 64)
	case len(s) > 1 && s[0] == '0':
		v, err = strconv.ParseInt(s, 8, 64)
	default:
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid arithmetic literal %q: %w", s, err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

func arithVarValue(cfg *Config, name string) (int64, error) {
	vr := cfg.Env.Get(name)
	if !vr.Set {
		return 0, nil
	}
	switch vr.Kind {
	case String:
		return parseArithInt(vr.Str)
	default:
		return 0, nil
	}
}

func evalArithUnary(cfg *Config, n *syntax.ArithUnaryExpr) (int64, error) {
	switch n.Op {
	case syntax.ArithIncPre, syntax.ArithDecPre, syntax.ArithIncPost, syntax.ArithDecPost:
		name, ok := arithLValueName(n.X)
		if !ok {
			return 0, fmt.Errorf("++/-- requires a variable operand")
		}
		old, err := arithVarValue(cfg, name)
		if err != nil {
			return 0, err
		}
		delta := int64(1)
		if n.Op == syntax.ArithDecPre || n.Op == syntax.ArithDecPost {
			delta = -1
		}
		if err := setArithVar(cfg, name, old+delta); err != nil {
			return 0, err
		}
		if n.Op == syntax.ArithIncPre || n.Op == syntax.ArithDecPre {
			return old + delta, nil
		}
		return old, nil
	}
	x, err := EvalArith(cfg, n.X)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case syntax.ArithNot:
		return boolInt(x == 0), nil
	case syntax.ArithBitNot:
		return ^x, nil
	case syntax.ArithPlus:
		return x, nil
	case syntax.ArithMinus:
		return -x, nil
	}
	return 0, fmt.Errorf("unsupported unary arith op")
}

func arithLValueName(x syntax.ArithExpr) (string, bool) {
	if v, ok := x.(*syntax.ArithVar); ok {
		return v.Name, true
	}
	return "", false
}

func setArithVar(cfg *Config, name string, v int64) error {
	return cfg.Env.Set(name, Variable{Set: true, Kind: String, Str: strconv.FormatInt(v, 10)})
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func evalArithBinary(cfg *Config, n *syntax.ArithBinaryExpr) (int64, error) {
	if n.Op == syntax.ArithLAnd {
		x, err := EvalArith(cfg, n.X)
		if err != nil {
			return 0, err
		}
		if x == 0 {
			return 0, nil
		}
		y, err := EvalArith(cfg, n.Y)
		if err != nil {
			return 0, err
		}
		return boolInt(y != 0), nil
	}
	if n.Op == syntax.ArithLOr {
		x, err := EvalArith(cfg, n.X)
		if err != nil {
			return 0, err
		}
		if x != 0 {
			return 1, nil
		}
		y, err := EvalArith(cfg, n.Y)
		if err != nil {
			return 0, err
		}
		return boolInt(y != 0), nil
	}
	x, err := EvalArith(cfg, n.X)
	if err != nil {
		return 0, err
	}
	y, err := EvalArith(cfg, n.Y)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case syntax.ArithAdd:
		return x + y, nil
	case syntax.ArithSub:
		return x - y, nil
	case syntax.ArithMul:
		return x * y, nil
	case syntax.ArithQuo:
		if y == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return x / y, nil
	case syntax.ArithRem:
		if y == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return x % y, nil
	case syntax.ArithPow:
		return ipow(x, y), nil
	case syntax.ArithAnd:
		return x & y, nil
	case syntax.ArithOr:
		return x | y, nil
	case syntax.ArithXor:
		return x ^ y, nil
	case syntax.ArithShl:
		return x << uint64(y), nil
	case syntax.ArithShr:
		return x >> uint64(y), nil
	case syntax.ArithEql:
		return boolInt(x == y), nil
	case syntax.ArithNeq:
		return boolInt(x != y), nil
	case syntax.ArithLss:
		return boolInt(x < y), nil
	case syntax.ArithLeq:
		return boolInt(x <= y), nil
	case syntax.ArithGtr:
		return boolInt(x > y), nil
	case syntax.ArithGeq:
		return boolInt(x >= y), nil
	case syntax.ArithComma:
		return y, nil
	}
	return 0, fmt.Errorf("unsupported binary arith op")
}

func ipow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	var result int64 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func evalArithAssign(cfg *Config, n *syntax.ArithAssignExpr) (int64, error) {
	rhs, err := EvalArith(cfg, n.X)
	if err != nil {
		return 0, err
	}
	if n.Op == syntax.ArithAssign {
		if err := setArithVar(cfg, n.Name, rhs); err != nil {
			return 0, err
		}
		return rhs, nil
	}
	cur, err := arithVarValue(cfg, n.Name)
	if err != nil {
		return 0, err
	}
	var v int64
	switch n.Op {
	case syntax.ArithAssignAdd:
		v = cur + rhs
	case syntax.ArithAssignSub:
		v = cur - rhs
	case syntax.ArithAssignMul:
		v = cur * rhs
	case syntax.ArithAssignQuo:
		if rhs == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		v = cur / rhs
	case syntax.ArithAssignRem:
		if rhs == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		v = cur % rhs
	case syntax.ArithAssignAnd:
		v = cur & rhs
	case syntax.ArithAssignOr:
		v = cur | rhs
	case syntax.ArithAssignXor:
		v = cur ^ rhs
	case syntax.ArithAssignShl:
		v = cur << uint64(rhs)
	case syntax.ArithAssignShr:
		v = cur >> uint64(rhs)
	default:
		return 0, fmt.Errorf("unsupported compound assignment")
	}
	if err := setArithVar(cfg, n.Name, v); err != nil {
		return 0, err
	}
	return v, nil
}
