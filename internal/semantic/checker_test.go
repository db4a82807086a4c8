// SPDX-License-Identifier: Apache-2.0
package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/parser"
)

var builtins = []ExternalSignature{
	{Name: "print_num", Arity: 1},
	{Name: "cool", Arity: 0},
}

func check(t *testing.T, src string) []string {
	t.Helper()
	prog, parseErrs := parser.ParseSource("t", src)
	require.Empty(t, parseErrs)
	errs := NewChecker("t", builtins).Check(prog)
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	return codes
}

func TestChecker_DuplicateFunction(t *testing.T) {
	codes := check(t, `fun f() { return 0; } fun f() { return 1; }`)
	assert.Contains(t, codes, "E0201")
}

func TestChecker_DuplicateParameter(t *testing.T) {
	codes := check(t, `fun f(a, a) { return a; }`)
	assert.Contains(t, codes, "E0200")
}

func TestChecker_UseBeforeInit(t *testing.T) {
	codes := check(t, `fun f() { return x; }`)
	assert.Contains(t, codes, "E0202")
}

func TestChecker_UseBeforeInit_ParamsAreInitialized(t *testing.T) {
	codes := check(t, `fun f(a) { return a; }`)
	assert.NotContains(t, codes, "E0202")
}

func TestChecker_UndefinedFunctionCall(t *testing.T) {
	codes := check(t, `fun f() { return nope(); }`)
	assert.Contains(t, codes, "E0203")
}

func TestChecker_ExternalArityMismatch(t *testing.T) {
	codes := check(t, `fun f() { print_num(1, 2); return 0; }`)
	assert.Contains(t, codes, "E0204")
}

func TestChecker_InternalArityMismatch(t *testing.T) {
	codes := check(t, `fun g(a, b) { return a + b; } fun f() { return g(1); }`)
	assert.Contains(t, codes, "E0204")
}

func TestChecker_ValidProgramHasNoErrors(t *testing.T) {
	codes := check(t, `fun add(a, b) { return a + b; } fun main() { return add(1, 2); }`)
	assert.Empty(t, codes)
}
