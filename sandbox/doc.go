// Package sandbox turns untrusted Python source into a graph draft.
//
// A submission passes three stages. The Validator inspects the raw text
// (denylisted tokens, tree-sitter syntax check, import allow-list). The
// Runner wraps the source with a preload prologue and a result epilogue,
// writes it to a private temp directory and runs it as a separate
// interpreter process under a fixed wall-clock budget. Normalize then
// picks the JSON result line out of stdout and coerces it into a
// graph.Draft.
//
// This is a cooperative-trust sandbox for a single-tenant tool. The
// process boundary, stripped module path and timeout contain faults; they
// are not a security boundary against hostile code.
//
// Usage:
//
//	svc := sandbox.NewFromConfig(logger, cfg)
//	draft, err := svc.ValidateAndRun(ctx, source)
//	if errors.Is(err, sandbox.ErrValidationRejected) {
//	    // show err.Error() to the submitter
//	}
package sandbox
