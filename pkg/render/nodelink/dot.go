package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stacklink/pkg/layout"
)

// rootNode is the DOT node id of the project root.
const rootNode = "__root__"

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds version and reference count to node labels.
	Detailed bool
}

// ToDOT converts a layout to Graphviz DOT. Node ids are destinations relative
// to the root module directory.
func ToDOT(l *layout.Layout, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [label=%q, shape=doubleoctagon];\n", rootNode, l.Root)
	ids := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		ids[i] = nodeID(l.ModulesDir, e.Dest)
		attrs := fmtAttrs(e, fmtLabel(e, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", ids[i], strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for i, e := range l.Entries {
		from := rootNode
		if !e.TopLevel() && e.Parent < len(ids) {
			from = ids[e.Parent]
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", from, ids[i])
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(modulesDir, dest string) string {
	rel, err := filepath.Rel(modulesDir, dest)
	if err != nil {
		return dest
	}
	return filepath.ToSlash(rel)
}

func fmtLabel(e layout.Entry, detailed bool) string {
	if !detailed {
		return e.Name
	}
	parts := []string{e.Name}
	if e.Version != "" {
		parts = append(parts, "version: "+e.Version)
	}
	if e.Refs > 0 {
		parts = append(parts, fmt.Sprintf("refs: %d", e.Refs))
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(e layout.Entry, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case e.Degraded:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case e.Hoisted:
		attrs = append(attrs, "fillcolor=lightblue")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
