package testengine

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/smith-xyz/topobench/pkg/models"
)

const harnessFile = "harness_main.go"

// harnessLine is one result printed by the generated harness
type harnessLine struct {
	Index     int    `json:"index"`
	Status    string `json:"status"`
	Output    string `json:"output"`
	ErrorType string `json:"error_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// withoutEntryPoint strips the sentinel main so the harness can supply its own
func withoutEntryPoint(src string) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	decls := file.Decls[:0]
	for _, d := range file.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Recv == nil && fn.Name.Name == models.EntryPointName {
			continue
		}
		decls = append(decls, d)
	}
	file.Decls = decls

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderHarness emits a main that runs every planned test, recovering panics,
// and prints one JSON line per test
func renderHarness(tests []plannedTest) ([]byte, error) {
	var b strings.Builder
	b.WriteString(`package main

import (
	"encoding/json"
	"fmt"
	"os"
)

type topobenchResult struct {
	Index     int    ` + "`json:\"index\"`" + `
	Status    string ` + "`json:\"status\"`" + `
	Output    string ` + "`json:\"output\"`" + `
	ErrorType string ` + "`json:\"error_type,omitempty\"`" + `
	Message   string ` + "`json:\"message,omitempty\"`" + `
}

func topobenchRun(enc *json.Encoder, index int, expected string, call func() any) {
	defer func() {
		if r := recover(); r != nil {
			_ = enc.Encode(topobenchResult{Index: index, Status: "ERROR", ErrorType: fmt.Sprintf("%T", r), Message: fmt.Sprint(r)})
		}
	}()
	out := call()
	got := fmt.Sprint(out)
	status := "FAIL"
	if expected == "" || got == expected || fmt.Sprintf("%#v", out) == expected {
		status = "PASS"
	}
	_ = enc.Encode(topobenchResult{Index: index, Status: status, Output: got})
}

func main() {
	enc := json.NewEncoder(os.Stdout)
`)
	for _, t := range tests {
		fmt.Fprintf(&b, "\ttopobenchRun(enc, %d, %s, func() any { return %s })\n",
			t.index, strconv.Quote(t.spec.ExpectedOutput), t.call)
	}
	b.WriteString("}\n")

	return format.Source([]byte(b.String()))
}
