// SPDX-License-Identifier: Apache-2.0

// Command jitcli parses, checks, compiles, and runs a single source
// file's main function, optionally dumping the AST, SSA, or linear IR
// along the way and disassembling whatever gets compiled.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"flint/internal/errors"
	"flint/internal/externals"
	"flint/internal/ir"
	"flint/internal/jit"
	"flint/internal/semantic"
	"flint/internal/ssa"

	"flint/internal/parser"
)

var log = commonlog.NewScopeLogger("jitcli")

func main() {
	var (
		level       = flag.String("l", "info", "log level: debug|info")
		printAST    = flag.Bool("p", false, "print the parsed AST")
		printSSA    = flag.Bool("s", false, "print the SSA form")
		printIR     = flag.Bool("i", false, "print the linear IR")
		disassemble = flag.Bool("a", false, "disassemble every compiled function")
	)
	flag.Parse()

	commonlog.Configure(verbosity(*level), nil)

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: jitcli [-l debug|info] [-p] [-s] [-i] [-a] <source-file> [args...]")
		os.Exit(1)
	}
	path, callArgs := args[0], args[1:]

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	os.Exit(run(path, string(source), callArgs, *printAST, *printSSA, *printIR, *disassemble))
}

func verbosity(level string) int {
	if level == "debug" {
		return 2
	}
	return 1
}

func run(path, source string, callArgs []string, printAST, printSSA, printIR, disassemble bool) int {
	prog, errs := parser.ParseSource(path, source)
	if len(errs) > 0 {
		reportAll(path, source, errs)
		return 1
	}
	if printAST {
		fmt.Print(prog.String())
	}

	sigs := externals.Signatures()
	extSigs := make([]semantic.ExternalSignature, len(sigs))
	for i, s := range sigs {
		extSigs[i] = semantic.ExternalSignature{Name: s.Name, Arity: s.Arity}
	}
	checker := semantic.NewChecker(path, extSigs)
	if errs := checker.Check(prog); len(errs) > 0 {
		reportAll(path, source, errs)
		return 1
	}

	ssaProg := ssa.Convert(prog)
	if printSSA {
		fmt.Println("-- ssa --")
		for _, fn := range ssaProg.Functions {
			fmt.Printf("fun %s(%v):\n", fn.Name, fn.Params)
			for _, stmt := range fn.Body {
				fmt.Printf("  %+v\n", stmt)
			}
		}
	}

	irProg := ir.Lower(ssaProg)
	if printIR {
		fmt.Println("-- ir --")
		for _, fn := range irProg.Functions {
			fmt.Printf("fun %s(%v):\n", fn.Name, fn.Params)
			for _, instr := range fn.Instrs {
				fmt.Printf("  %+v\n", instr)
			}
		}
	}

	log.Debugf("compiling and running %s", path)
	tracker, err := jit.New(irProg)
	if err != nil {
		color.Red("jit: %s", err)
		return 1
	}
	defer tracker.Release()

	if disassemble {
		listings, err := tracker.Disassemble()
		if err != nil {
			color.Red("disassembly: %s", err)
			return 1
		}
		for name, lines := range listings {
			fmt.Printf("; %s\n", name)
			for _, l := range lines {
				fmt.Printf("  %s\n", l)
			}
		}
	}

	handle, err := tracker.GetMainFunction()
	if err != nil {
		color.Red("jit: %s", err)
		return 1
	}

	values, err := parseArgs(callArgs)
	if err != nil {
		color.Red("%s", err)
		return 1
	}

	result, err := handle.Call(values...)
	if err != nil {
		color.Red("%s", err)
		return 1
	}

	fmt.Println(result)
	return 0
}

func parseArgs(raw []string) ([]int64, error) {
	out := make([]int64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q) is not an integer", i, s)
		}
		out[i] = v
	}
	return out, nil
}

func reportAll(path, source string, errs []errors.CompilerError) {
	reporter := errors.NewErrorReporter(path, source)
	for _, e := range errs {
		fmt.Print(reporter.FormatError(e))
	}
}

