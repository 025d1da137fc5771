package expand

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/sandboxshell/vsh/pattern"
	"github.com/sandboxshell/vsh/syntax"
)

// StatFunc lets EvalTest consult the virtual filesystem for the -e/-f/
// -d/... unary predicates without this package depending on vfs
// directly (which would create an import cycle with interp).
type StatFunc func(path string) (isDir, isRegular, isSymlink bool, size int64, exists bool)

// TestConfig augments Config with the filesystem hook EvalTest needs.
type TestConfig struct {
	*Config
	Stat StatFunc
}

// EvalTest evaluates a "[[ ... ]]" expression tree, per spec.md §4.4:
// operands are expanded with quote removal and parameter/command/
// arithmetic substitution but never field-split or globbed.
func EvalTest(ctx context.Context, cfg *TestConfig, x syntax.TestExpr) (bool, error) {
	switch n := x.(type) {
	case *syntax.TestWordExpr:
		s, err := Literal(ctx, cfg.Config, n.X)
		if err != nil {
			return false, err
		}
		return s != "", nil
	case *syntax.TestNotExpr:
		v, err := EvalTest(ctx, cfg, n.X)
		if err != nil {
			return false, err
		}
		return !v, nil
	case *syntax.TestAndExpr:
		x1, err := EvalTest(ctx, cfg, n.X)
		if err != nil {
			return false, err
		}
		if !x1 {
			return false, nil
		}
		return EvalTest(ctx, cfg, n.Y)
	case *syntax.TestOrExpr:
		x1, err := EvalTest(ctx, cfg, n.X)
		if err != nil {
			return false, err
		}
		if x1 {
			return true, nil
		}
		return EvalTest(ctx, cfg, n.Y)
	case *syntax.TestParenExpr:
		return EvalTest(ctx, cfg, n.X)
	case *syntax.TestUnaryExpr:
		return evalTestUnary(ctx, cfg, n)
	case *syntax.TestBinaryExpr:
		return evalTestBinary(ctx, cfg, n)
	}
	return false, fmt.Errorf("unsupported test expression %T", x)
}

func evalTestUnary(ctx context.Context, cfg *TestConfig, n *syntax.TestUnaryExpr) (bool, error) {
	operand, err := Literal(ctx, cfg.Config, n.X)
	if err != nil {
		return false, err
	}
	switch n.Op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-v":
		vr := cfg.Env.Get(operand)
		return vr.Set, nil
	case "-o":
		return false, nil // shell-option query is not evaluated: always false
	}
	if cfg.Stat == nil {
		return false, nil
	}
	isDir, isRegular, isSymlink, size, exists := cfg.Stat(operand)
	switch n.Op {
	case "-e":
		return exists, nil
	case "-f":
		return exists && isRegular, nil
	case "-d":
		return exists && isDir, nil
	case "-L", "-h":
		return exists && isSymlink, nil
	case "-s":
		return exists && size > 0, nil
	case "-r", "-w", "-x":
		return exists, nil
	default:
		return false, nil
	}
}

func evalTestBinary(ctx context.Context, cfg *TestConfig, n *syntax.TestBinaryExpr) (bool, error) {
	left, err := Literal(ctx, cfg.Config, n.X)
	if err != nil {
		return false, err
	}
	switch n.Op {
	case "=~":
		pat, err := Literal(ctx, cfg.Config, n.Y)
		if err != nil {
			return false, err
		}
		rx, err := regexp.Compile(pat)
		if err != nil {
			return false, fmt.Errorf("invalid regular expression %q: %w", pat, err)
		}
		return rx.MatchString(left), nil
	case "==", "=":
		pat, err := Literal(ctx, cfg.Config, n.Y)
		if err != nil {
			return false, err
		}
		mode := pattern.EntireString
		if cfg.ExtGlob {
			mode |= pattern.ExtendedOperators
		}
		if cfg.NoCaseGlob {
			mode |= pattern.NoGlobCase
		}
		m, err := pattern.ExtendedMatcher(pat, mode)
		if err != nil {
			return left == pat, nil
		}
		return m(left), nil
	case "!=":
		eq, err := evalTestBinary(ctx, cfg, &syntax.TestBinaryExpr{Op: "==", X: n.X, Y: n.Y})
		if err != nil {
			return false, err
		}
		return !eq, nil
	case "<":
		right, err := Literal(ctx, cfg.Config, n.Y)
		if err != nil {
			return false, err
		}
		return left < right, nil
	case ">":
		right, err := Literal(ctx, cfg.Config, n.Y)
		if err != nil {
			return false, err
		}
		return left > right, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		right, err := Literal(ctx, cfg.Config, n.Y)
		if err != nil {
			return false, err
		}
		lv, lerr := strconv.ParseInt(left, 10, 64)
		rv, rerr := strconv.ParseInt(right, 10, 64)
		if lerr != nil || rerr != nil {
			return false, fmt.Errorf("non-numeric operand in arithmetic test")
		}
		switch n.Op {
		case "-eq":
			return lv == rv, nil
		case "-ne":
			return lv != rv, nil
		case "-lt":
			return lv < rv, nil
		case "-le":
			return lv <= rv, nil
		case "-gt":
			return lv > rv, nil
		case "-ge":
			return lv >= rv, nil
		}
	case "-nt", "-ot", "-ef":
		return false, nil
	}
	return false, fmt.Errorf("unsupported test operator %q", n.Op)
}
