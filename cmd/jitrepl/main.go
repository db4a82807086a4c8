// SPDX-License-Identifier: Apache-2.0

// Command jitrepl is a line-oriented REPL: `fun name(params) { ... }`
// defines a function (spanning lines until its braces balance), and
// `name(1, 2, 3)` invokes a previously defined function with literal
// integer arguments. A thin consumer of the parser, semantic checker,
// and tracker — it has no opinions of its own about language semantics.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"flint/internal/errors"
	"flint/internal/externals"
	"flint/internal/ir"
	"flint/internal/jit"
	"flint/internal/parser"
	"flint/internal/semantic"
	"flint/internal/ssa"
)

func main() {
	fmt.Println("flint repl — `fun name(a, b) { ... }` to define, `name(1, 2)` to call, ^D to quit")
	scanner := bufio.NewScanner(os.Stdin)

	var source strings.Builder
	var tracker *jit.Tracker

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "fun ") {
			def := collectDefinition(line, scanner)
			candidate := source.String() + def + "\n"
			next, err := build(candidate)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if tracker != nil {
				tracker.Release()
			}
			tracker = next
			source.WriteString(def + "\n")
			fmt.Println("ok")
			continue
		}

		if tracker == nil {
			fmt.Println("no functions defined yet")
			continue
		}
		name, args, err := parseCall(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		h, err := tracker.GetFunction(name)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		result, err := h.Call(args...)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println(result)
	}

	if tracker != nil {
		tracker.Release()
	}
}

// collectDefinition reads lines until the function's braces balance,
// returning the whole definition as one string.
func collectDefinition(first string, scanner *bufio.Scanner) string {
	var b strings.Builder
	b.WriteString(first)
	depth := strings.Count(first, "{") - strings.Count(first, "}")
	for depth > 0 && scanner.Scan() {
		l := scanner.Text()
		b.WriteString("\n")
		b.WriteString(l)
		depth += strings.Count(l, "{") - strings.Count(l, "}")
	}
	return b.String()
}

// build re-parses and re-checks the whole accumulated source (including
// the candidate new definition) and, if it's valid, compiles it fresh.
// Rebuilding from scratch on every definition keeps the REPL simple at
// the cost of recompiling everything already defined; fine for a tool
// meant for small, interactive sessions rather than large programs.
func build(source string) (*jit.Tracker, error) {
	prog, errs := parser.ParseSource("repl", source)
	if len(errs) > 0 {
		return nil, firstError(errs)
	}

	sigs := externals.Signatures()
	extSigs := make([]semantic.ExternalSignature, len(sigs))
	for i, s := range sigs {
		extSigs[i] = semantic.ExternalSignature{Name: s.Name, Arity: s.Arity}
	}
	if errs := semantic.NewChecker("repl", extSigs).Check(prog); len(errs) > 0 {
		return nil, firstError(errs)
	}

	irProg := ir.Lower(ssa.Convert(prog))
	return jit.New(irProg)
}

func firstError(errs []errors.CompilerError) error {
	return fmt.Errorf("%s", errs[0].Message)
}

// parseCall accepts "name(1, 2, 3)" with zero or more comma-separated
// integer literals.
func parseCall(line string) (string, []int64, error) {
	open := strings.IndexByte(line, '(')
	if open < 0 || !strings.HasSuffix(line, ")") {
		return "", nil, fmt.Errorf("expected name(args...)")
	}
	name := strings.TrimSpace(line[:open])
	inner := strings.TrimSpace(line[open+1 : len(line)-1])
	if inner == "" {
		return name, nil, nil
	}
	parts := strings.Split(inner, ",")
	args := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("argument %q is not an integer", p)
		}
		args[i] = v
	}
	return name, args, nil
}
