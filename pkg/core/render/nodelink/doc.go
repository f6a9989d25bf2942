// Package nodelink lays out and draws dagscope scenes with Graphviz.
//
// This package is the default collaborator behind the engine's layout and
// export interfaces. Graphviz handles layout and drawing in one step, so the
// DOT text produced by [ToDOT] is the only intermediate representation:
//
//	Scene → ToDOT() → DOT → RenderSVG() → SVG
//	Scene → ToDOT() → DOT → Layout()    → render.Positions
//
// # Styling
//
// Visual flags on the scene map onto DOT attributes:
//
//   - Module groups: cluster labelled "Module: <name>" (a folder node when collapsed)
//   - Collapsed containers: double outline
//   - Validation results: small note shape, label stripped of "<parent>_"
//   - Validator edges: invisible
//   - Highlighted nodes and edges: accent color, thicker stroke
//   - Merged meta edges: dashed
//
// The orientation becomes the graph's rankdir (LR or TB).
//
// # Usage
//
//	r := nodelink.NewRenderer(nodelink.Options{}, logger)
//	defer r.Close()
//	svg, err := r.Export(ctx, scene, render.FormatSVG)
//
// Graphviz runs as WebAssembly inside the process (goccy/go-graphviz), so no
// system installation is needed.
package nodelink
