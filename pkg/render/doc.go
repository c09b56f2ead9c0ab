// Package render draws computed module layouts.
//
// The [nodelink] subpackage turns a layout into a Graphviz diagram: the root
// at the top, every placed package as a box, and an arrow from each package
// to the packages nested in its private module directory. Hoisted packages
// hang directly off the root.
//
//	dot := nodelink.ToDOT(l, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package render

// Format constants for graph output.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidFormats is the set of supported graph output formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}
