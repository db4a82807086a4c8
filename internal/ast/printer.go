// SPDX-License-Identifier: Apache-2.0
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

func (p *Program) String() string {
	var b strings.Builder
	for i, fn := range p.Functions {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(fn.String())
	}
	return b.String()
}

func (f *Function) String() string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Name
	}
	return fmt.Sprintf("fun %s(%s) %s", f.Name, strings.Join(names, ", "), f.Body.String())
}

func (fp *FunctionParam) String() string { return fp.Name }

func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, s := range b.Stmts {
		sb.WriteString("  " + s.String() + "\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func (a *AssignStmt) String() string {
	return fmt.Sprintf("%s = %s;", a.Name, a.Expr.String())
}

func (i *IfStmt) String() string {
	return fmt.Sprintf("if (%s) %s", i.Cond.String(), i.Body.String())
}

func (w *WhileStmt) String() string {
	return fmt.Sprintf("while (%s) %s", w.Cond.String(), w.Body.String())
}

func (c *CallStmt) String() string { return c.Call.String() + ";" }

func (r *ReturnStmt) String() string {
	if r.Expr == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", r.Expr.String())
}

func (n *NumberExpr) String() string { return strconv.FormatInt(n.Value, 10) }

func (i *IdentExpr) String() string { return i.Name }

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), string(b.Op), b.Right.String())
}

func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}
