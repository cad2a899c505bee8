package hlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParseAttributesAndBlocks(t *testing.T) {
	src := `
message = "hello"
status  = 404

log_info {
  message = "inner"
}
`
	tree, err := NewHCLParser().Parse("test.hl", []byte(src))
	require.NoError(t, err)
	require.Len(t, tree.Children, 3)

	msg, ok := tree.GetString("message")
	require.True(t, ok)
	assert.Equal(t, "hello", msg)

	status, ok := tree.GetInt("status")
	require.True(t, ok)
	assert.Equal(t, 404, status)

	block := tree.Child("log_info")
	require.NotNil(t, block)
	inner, ok := block.GetString("message")
	require.True(t, ok)
	assert.Equal(t, "inner", inner)
}

func TestParseAttributeSourceOrder(t *testing.T) {
	src := `
zeta  = 1
alpha = 2
mid   = 3
`
	tree, err := NewHCLParser().Parse("test.hl", []byte(src))
	require.NoError(t, err)

	var names []string
	for _, c := range tree.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestParseBlockLabels(t *testing.T) {
	src := `
step "build" "linux" {
  cmd = "make"
}
`
	tree, err := NewHCLParser().Parse("test.hl", []byte(src))
	require.NoError(t, err)

	block := tree.Child("step")
	require.NotNil(t, block)
	assert.Equal(t, cty.StringVal("build.linux"), block.Value)
}

func TestParseNestedBlocks(t *testing.T) {
	src := `
outer {
  inner {
    deep = true
  }
}
`
	tree, err := NewHCLParser().Parse("test.hl", []byte(src))
	require.NoError(t, err)

	outer := tree.Child("outer")
	require.NotNil(t, outer)
	inner := outer.Child("inner")
	require.NotNil(t, inner)
	deep, ok := inner.GetBool("deep")
	require.True(t, ok)
	assert.True(t, deep)
}

func TestParseSyntaxErrorIsReported(t *testing.T) {
	_, err := NewHCLParser().Parse("broken.hl", []byte(`message = `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.hl")
}

func TestParseEmptySource(t *testing.T) {
	tree, err := NewHCLParser().Parse("empty.hl", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, tree.Children)
}
