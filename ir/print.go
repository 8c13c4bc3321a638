package ir

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// PrintOptions configures Dump's output format.
type PrintOptions func(*printOptions)

// WithIndent sets the number of spaces used per nesting level of the
// statement tree.
func WithIndent(n int) PrintOptions {
	return func(o *printOptions) { o.indent = n }
}

// WithTable switches Dump to emit a buffer-summary table (name, dtype,
// dims, argument/intermediate) ahead of the statement tree, the form
// `texprc compile --verbose` uses.
func WithTable(on bool) PrintOptions {
	return func(o *printOptions) { o.table = on }
}

type printOptions struct {
	indent int
	table  bool
}

// Dump renders a loop nest as human-readable text: an optional buffer
// table followed by the statement tree of each compute, in order.
func Dump(l *LoopNest, opts ...PrintOptions) string {
	o := printOptions{indent: 2}
	for _, f := range opts {
		f(&o)
	}

	var buf bytes.Buffer
	if o.table {
		writeBufferTable(&buf, l)
	}
	for i, c := range l.Computes {
		fmt.Fprintf(&buf, "compute[%d] buf=%s\n", i, l.Arena.Buffer(c.Buf).Name)
		if c.IsPassThrough() {
			buf.WriteString(strings.Repeat(" ", o.indent))
			buf.WriteString("<pass-through>\n")
			continue
		}
		printStmt(&buf, l.Arena, c.Body, o.indent, o.indent)
	}
	return buf.String()
}

func writeBufferTable(buf *bytes.Buffer, l *LoopNest) {
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"name", "dtype", "dims", "kind"})
	seen := map[BufHandle]bool{}
	for _, c := range l.Computes {
		if seen[c.Buf] {
			continue
		}
		seen[c.Buf] = true
		b := l.Arena.Buffer(c.Buf)
		kind := "intermediate"
		if b.IsArgument {
			kind = "argument"
		}
		table.Append([]string{b.Name, b.DType.String(), fmt.Sprintf("%d", len(b.Dims)), kind})
	}
	table.Render()
}

func printStmt(buf *bytes.Buffer, a *Arena, h StmtHandle, indent, step int) {
	pad := strings.Repeat(" ", indent)
	if h == Invalid {
		return
	}
	switch a.StmtKind(h) {
	case KindBlock:
		for _, s := range a.BlockStmts(h) {
			printStmt(buf, a, s, indent, step)
		}
	case KindFor:
		f := a.ForFields(h)
		tag := ""
		if f.Parallel {
			tag = " parallel"
		}
		fmt.Fprintf(buf, "%sfor %s in [%s, %s)%s {\n", pad, printExpr(a, f.LoopVar), printExpr(a, f.Start), printExpr(a, f.End), tag)
		printStmt(buf, a, f.Body, indent+step, step)
		fmt.Fprintf(buf, "%s}\n", pad)
	case KindStore:
		bh, idx, v := a.StoreFields(h)
		fmt.Fprintf(buf, "%s%s[%s] = %s\n", pad, a.Buffer(bh).Name, printExprList(a, idx), printExpr(a, v))
	case KindLet:
		v, val := a.LetFields(h)
		fmt.Fprintf(buf, "%slet %s = %s\n", pad, printExpr(a, v), printExpr(a, val))
	case KindCond:
		cond, t, f := a.CondFields(h)
		fmt.Fprintf(buf, "%sif %s {\n", pad, printExpr(a, cond))
		printStmt(buf, a, t, indent+step, step)
		if f != Invalid {
			fmt.Fprintf(buf, "%s} else {\n", pad)
			printStmt(buf, a, f, indent+step, step)
		}
		fmt.Fprintf(buf, "%s}\n", pad)
	case KindAllocate:
		fmt.Fprintf(buf, "%salloc %s\n", pad, a.Buffer(a.AllocBuffer(h)).Name)
	case KindFree:
		fmt.Fprintf(buf, "%sfree %s\n", pad, a.Buffer(a.AllocBuffer(h)).Name)
	}
}

func printExprList(a *Arena, hs []ExprHandle) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = printExpr(a, h)
	}
	return strings.Join(parts, ", ")
}

func printExpr(a *Arena, h ExprHandle) string {
	switch a.Kind(h) {
	case KindIntImm:
		return fmt.Sprintf("%d", a.IntValue(h))
	case KindFloatImm:
		return fmt.Sprintf("%g", a.FloatValue(h))
	case KindBoolImm:
		return fmt.Sprintf("%t", a.BoolValue(h))
	case KindVar:
		return a.VarName(h)
	case KindAdd:
		return binop(a, h, "+")
	case KindSub:
		return binop(a, h, "-")
	case KindMul:
		return binop(a, h, "*")
	case KindDiv:
		return binop(a, h, "/")
	case KindMod:
		return binop(a, h, "%")
	case KindMin:
		return fmt.Sprintf("min(%s, %s)", printExpr(a, a.Children(h)[0]), printExpr(a, a.Children(h)[1]))
	case KindMax:
		return fmt.Sprintf("max(%s, %s)", printExpr(a, a.Children(h)[0]), printExpr(a, a.Children(h)[1]))
	case KindCompareSelect:
		c := a.Children(h)
		return fmt.Sprintf("(%s %s %s) ? %s : %s", printExpr(a, c[0]), cmpSymbol(a.CompareOp(h)), printExpr(a, c[1]), printExpr(a, c[2]), printExpr(a, c[3]))
	case KindIfThenElse:
		c := a.Children(h)
		return fmt.Sprintf("(%s ? %s : %s)", printExpr(a, c[0]), printExpr(a, c[1]), printExpr(a, c[2]))
	case KindCast:
		return fmt.Sprintf("cast(%s)", printExpr(a, a.Children(h)[0]))
	case KindLoad:
		return fmt.Sprintf("%s[%s]", a.Buffer(a.LoadBuf(h)).Name, printExprList(a, a.Children(h)))
	case KindRamp:
		c := a.Children(h)
		return fmt.Sprintf("ramp(%s, %s, %d)", printExpr(a, c[0]), printExpr(a, c[1]), a.Lanes(h))
	case KindBroadcast:
		return fmt.Sprintf("broadcast(%s, %d)", printExpr(a, a.Children(h)[0]), a.Lanes(h))
	default:
		return "<invalid>"
	}
}

func binop(a *Arena, h ExprHandle, sym string) string {
	c := a.Children(h)
	return fmt.Sprintf("(%s %s %s)", printExpr(a, c[0]), sym, printExpr(a, c[1]))
}

func cmpSymbol(op CompareOp) string {
	switch op {
	case CmpEQ:
		return "=="
	case CmpNE:
		return "!="
	case CmpLT:
		return "<"
	case CmpLE:
		return "<="
	case CmpGT:
		return ">"
	case CmpGE:
		return ">="
	default:
		return "?"
	}
}
