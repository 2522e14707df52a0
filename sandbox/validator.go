package sandbox

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Verdict is the result of static inspection: Accepted or Rejected(reason)
type Verdict struct {
	rejected bool
	reason   string
}

// Accept returns the Accepted verdict
func Accept() Verdict {
	return Verdict{}
}

// Reject returns a Rejected verdict carrying reason
func Reject(reason string) Verdict {
	return Verdict{rejected: true, reason: reason}
}

// Accepted reports whether the source may be executed
func (v Verdict) Accepted() bool {
	return !v.rejected
}

// Reason is empty for Accepted verdicts
func (v Verdict) Reason() string {
	return v.reason
}

// Err returns nil for Accepted, else an ErrValidationRejected ExecutionError
func (v Verdict) Err() error {
	if !v.rejected {
		return nil
	}
	return newError(ErrValidationRejected, v.reason)
}

// Validator performs pre-execution checks on submitted Python source.
//
// The denylist is a plain case-insensitive substring match over the raw
// text. It rejects harmless mentions inside strings or comments and misses
// anything phrased differently; the process boundary enforced by Runner is
// what actually contains the code.
//
// A Validator holds only immutable configuration and is safe for
// concurrent use.
type Validator struct {
	allowed map[string]struct{}
	blocked []string
}

// NewValidator builds a Validator from the import allow-list and the denylisted tokens
func NewValidator(allowedImports, blockedKeywords []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedImports))
	for _, name := range allowedImports {
		allowed[name] = struct{}{}
	}
	return &Validator{
		allowed: allowed,
		blocked: append([]string(nil), blockedKeywords...),
	}
}

// Validate runs the denylist scan, the syntax check and the import
// allow-list check in that order, stopping at the first failure.
func (v *Validator) Validate(ctx context.Context, source string) Verdict {
	lower := strings.ToLower(source)
	for _, keyword := range v.blocked {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return Reject("Blocked operation detected: " + keyword)
		}
	}

	content := []byte(source)

	// New parser per call; tree-sitter parsers are not safe for concurrent use.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return Reject("Syntax error: " + err.Error())
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return Reject("Syntax error: source could not be parsed")
	}
	if root.HasError() {
		return Reject("Syntax error: " + describeSyntaxError(root, content))
	}
	if problem := legacySyntax(root, content); problem != "" {
		return Reject("Syntax error: " + problem)
	}

	for _, name := range importedModules(root, content) {
		if _, ok := v.allowed[topLevel(name)]; !ok {
			return Reject("Import not allowed: " + name)
		}
	}

	return Accept()
}

// describeSyntaxError locates the first ERROR or MISSING node in document order
func describeSyntaxError(root *sitter.Node, content []byte) string {
	node := firstErrorNode(root)
	if node == nil {
		return "invalid syntax"
	}

	at := position(node)

	if node.IsMissing() {
		return fmt.Sprintf("missing %q (%s)", node.Type(), at)
	}

	snippet := strings.TrimSpace(node.Content(content))
	if snippet == "" || len(snippet) > 40 {
		return fmt.Sprintf("invalid syntax (%s)", at)
	}
	return fmt.Sprintf("invalid syntax near %q (%s)", snippet, at)
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// legacySyntax reports constructs the grammar accepts but Python 3 does
// not: print and exec statements, leading-zero decimals and long suffixes.
func legacySyntax(root *sitter.Node, content []byte) string {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Type() {
		case "print_statement":
			return "Missing parentheses in call to 'print' (" + position(node) + ")"
		case "exec_statement":
			return "Missing parentheses in call to 'exec' (" + position(node) + ")"
		case "integer":
			if msg := integerProblem(node.Content(content)); msg != "" {
				return msg + " (" + position(node) + ")"
			}
		}

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.NamedChild(i))
		}
	}
	return ""
}

func integerProblem(text string) string {
	digits := strings.ReplaceAll(text, "_", "")
	if digits == "" {
		return ""
	}
	switch digits[len(digits)-1] {
	case 'l', 'L':
		return "invalid decimal literal"
	case 'j', 'J':
		return ""
	}
	if len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' &&
		strings.Trim(digits, "0") != "" {
		return "leading zeros in decimal integer literals are not permitted"
	}
	return ""
}

func position(node *sitter.Node) string {
	point := node.StartPoint()
	return fmt.Sprintf("line %d, column %d", point.Row+1, point.Column+1)
}

// importedModules returns the dotted module name of every import in the
// tree, nested ones included, in document order.
func importedModules(root *sitter.Node, content []byte) []string {
	var names []string

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Type() {
		case "import_statement":
			names = append(names, plainImportNames(node, content)...)
			continue
		case "import_from_statement":
			if name := fromImportModule(node, content); name != "" {
				names = append(names, name)
			}
			continue
		case "future_import_statement":
			names = append(names, "__future__")
			continue
		}

		// Push in reverse so children pop in source order.
		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.NamedChild(i))
		}
	}

	return names
}

// plainImportNames handles 'import a.b' and 'import a.b as c'
func plainImportNames(node *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			names = append(names, dottedName(child, content))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, dottedName(name, content))
			}
		}
	}
	return names
}

// fromImportModule handles 'from a.b import c'. A bare relative import
// such as 'from . import c' names no module and yields "".
func fromImportModule(node *sitter.Node, content []byte) string {
	module := node.ChildByFieldName("module_name")
	if module == nil {
		return ""
	}

	switch module.Type() {
	case "dotted_name":
		return dottedName(module, content)
	case "relative_import":
		for i := 0; i < int(module.NamedChildCount()); i++ {
			if child := module.NamedChild(i); child.Type() == "dotted_name" {
				return dottedName(child, content)
			}
		}
	}
	return ""
}

func dottedName(node *sitter.Node, content []byte) string {
	return strings.Join(strings.Fields(node.Content(content)), "")
}

func topLevel(name string) string {
	head, _, _ := strings.Cut(name, ".")
	return head
}
