package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	wrapped := Wrap("x = 1", []string{"networkx as nx", " ", "math"})

	assert.True(t, strings.HasPrefix(wrapped, "import networkx as nx\nimport math\n\n# --- submitted code ---\nx = 1\n"))
	assert.Contains(t, wrapped, "if 'result' not in globals():")
	assert.True(t, strings.HasSuffix(wrapped, "print(_graphbox_json.dumps(_graphbox_plain(result)))\n"))
}

func TestWrapKeepsTrailingNewline(t *testing.T) {
	wrapped := Wrap("x = 1\n", nil)
	assert.True(t, strings.HasPrefix(wrapped, "\n# --- submitted code ---\nx = 1\n\n# --- end of submitted code ---"))
}
