package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	pointer "github.com/BarrensZeppelin/cspta"
	"github.com/BarrensZeppelin/cspta/internal/maps"
	"github.com/BarrensZeppelin/cspta/internal/slices"
	"github.com/BarrensZeppelin/cspta/ir"
	"github.com/fatih/color"
	"golang.org/x/term"
)

type flowReport struct {
	Source string   `json:"source"`
	Sink   string   `json:"sink"`
	Index  int      `json:"index"`
	Path   []string `json:"path,omitempty"`
}

type report struct {
	Program   string              `json:"program"`
	Selector  string              `json:"selector"`
	Complete  bool                `json:"complete"`
	Stats     pointer.Stats       `json:"stats"`
	Reachable []string            `json:"reachable"`
	CallGraph map[string][]string `json:"callGraph"`
	PointsTo  map[string][]string `json:"pointsTo"`
	Recursive [][]string          `json:"recursive,omitempty"`
	Flows     []flowReport        `json:"taintFlows,omitempty"`
}

func toString[T fmt.Stringer](x T) string { return x.String() }

// newReport renders the context-insensitive projection of res.
func newReport(program, selector string, res *pointer.Result) *report {
	r := &report{
		Program:   program,
		Selector:  selector,
		Complete:  res.Complete,
		Stats:     res.Stats,
		Reachable: slices.Map(res.ReachableMethods(), toString[*ir.Method]),
		CallGraph: make(map[string][]string),
		PointsTo:  make(map[string][]string),
	}

	for call, callees := range res.CallGraph.Project() {
		r.CallGraph[call.String()] = slices.Map(callees, toString[*ir.Method])
	}

	for _, m := range res.ReachableMethods() {
		for _, v := range m.Vars() {
			if objs := res.VarPointsTo(v); len(objs) != 0 {
				r.PointsTo[v.String()] = slices.Map(objs, toString[*pointer.Obj])
			}
		}
	}

	for _, comp := range res.CallGraph.RecursiveComponents() {
		r.Recursive = append(r.Recursive, slices.Map(comp, toString[*pointer.CSMethod]))
	}

	for _, f := range res.TaintFlows {
		fr := flowReport{Source: f.Source.String(), Sink: f.Sink.String(), Index: f.Index}
		if path, ok := res.FlowPath(f); ok {
			fr.Path = slices.Map(path, toString[pointer.Pointer])
		}
		r.Flows = append(r.Flows, fr)
	}
	return r
}

func (r *report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *report) writeText(w io.Writer, colored bool) {
	heading := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed, color.Bold)
	faint := color.New(color.Faint)
	for _, c := range []*color.Color{heading, warn, bad, faint} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	heading.Fprintf(w, "%s (%s)\n", r.Program, r.Selector)
	if !r.Complete {
		warn.Fprintln(w, "analysis incomplete, results are partial")
	}
	faint.Fprintf(w, "%d work items, %d pointer flow edges, %d call edges, %v\n\n",
		r.Stats.WorkItems, r.Stats.PFGEdges, r.Stats.CallEdges, r.Stats.Duration)

	heading.Fprintf(w, "Reachable methods (%d)\n", len(r.Reachable))
	for _, m := range r.Reachable {
		fmt.Fprintf(w, "  %s\n", m)
	}

	heading.Fprintln(w, "\nCall graph")
	for _, call := range maps.SortedKeys(r.CallGraph) {
		fmt.Fprintf(w, "  %s\n", call)
		for _, callee := range r.CallGraph[call] {
			fmt.Fprintf(w, "    -> %s\n", callee)
		}
	}

	if len(r.Recursive) != 0 {
		heading.Fprintln(w, "\nRecursive methods")
		for _, comp := range r.Recursive {
			fmt.Fprintf(w, "  %v\n", comp)
		}
	}

	heading.Fprintln(w, "\nPoints-to sets")
	for _, v := range maps.SortedKeys(r.PointsTo) {
		fmt.Fprintf(w, "  %s -> %v\n", v, r.PointsTo[v])
	}

	if len(r.Flows) != 0 {
		heading.Fprintf(w, "\nTaint flows (%d)\n", len(r.Flows))
		for _, f := range r.Flows {
			bad.Fprintf(w, "  %s -> %s [arg %d]\n", f.Source, f.Sink, f.Index)
			for _, p := range f.Path {
				faint.Fprintf(w, "      %s\n", p)
			}
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
