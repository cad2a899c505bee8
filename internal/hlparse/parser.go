// Package hlparse turns raw script source into an executable instruction
// tree. Scripts are HCL: every top-level block becomes a child node named
// after the block type, attributes become leaf nodes carrying cty values,
// and nested blocks recurse.
package hlparse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/magicd/internal/lambda"
)

// Parser parses raw script source into an instruction tree.
type Parser interface {
	Parse(filename string, src []byte) (*lambda.Node, error)
}

// HCLParser is the HCL-backed implementation of Parser.
type HCLParser struct{}

// NewHCLParser creates a new HCL script parser.
func NewHCLParser() *HCLParser {
	return &HCLParser{}
}

// Parse parses src into a root node. The filename is only used for
// diagnostics.
func (p *HCLParser) Parse(filename string, src []byte) (*lambda.Node, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("parsing %s: unexpected body type %T", filename, file.Body)
	}

	root := lambda.New("")
	if err := translateBody(body, root); err != nil {
		return nil, fmt.Errorf("translating %s: %w", filename, err)
	}
	return root, nil
}

// translateBody appends the body's attributes and blocks to parent as child
// nodes. Attributes are emitted in source order, then blocks in source order.
func translateBody(body *hclsyntax.Body, parent *lambda.Node) error {
	for _, attr := range sortedAttributes(body.Attributes) {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("evaluating attribute %q: %w", attr.Name, diags)
		}
		child := lambda.New(attr.Name)
		child.Value = val
		parent.Add(child)
	}

	for _, block := range body.Blocks {
		child := lambda.New(block.Type)
		if len(block.Labels) > 0 {
			child.Value = cty.StringVal(strings.Join(block.Labels, "."))
		}
		if err := translateBody(block.Body, child); err != nil {
			return err
		}
		parent.Add(child)
	}

	return nil
}

// sortedAttributes returns the body's attributes ordered by their position
// in the source file, since hclsyntax stores them in a map.
func sortedAttributes(attrs hclsyntax.Attributes) []*hclsyntax.Attribute {
	out := make([]*hclsyntax.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SrcRange.Start.Byte < out[j].SrcRange.Start.Byte
	})
	return out
}
