// Package nodelink renders module layouts as node-link diagrams.
//
// # Usage
//
//	dot := nodelink.ToDOT(l, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Styling
//
// Hoisted packages are filled light blue. Packages whose identifier could not
// be parsed are drawn dashed. With Options.Detailed, labels also carry the
// version and the number of distinct dependents.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering, so no Graphviz installation is needed.
package nodelink
