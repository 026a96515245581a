package taint

import (
	"fmt"
	"sort"

	"github.com/BarrensZeppelin/cspta/ir"
)

// Flow records that a value produced at the source call reaches argument
// Index of the sink call.
type Flow struct {
	Source *ir.Invoke
	Sink   *ir.Invoke
	Index  int
}

func (f Flow) String() string {
	return fmt.Sprintf("TaintFlow{%v -> %v/%d}", f.Source, f.Sink, f.Index)
}

func less(a, b *ir.Invoke) bool {
	if a.Method() != b.Method() {
		return a.Method().Signature() < b.Method().Signature()
	}
	return a.Index() < b.Index()
}

// SortFlows orders flows by source call, then sink call, then index.
func SortFlows(flows []Flow) {
	sort.Slice(flows, func(i, j int) bool {
		a, b := flows[i], flows[j]
		switch {
		case a.Source != b.Source:
			return less(a.Source, b.Source)
		case a.Sink != b.Sink:
			return less(a.Sink, b.Sink)
		default:
			return a.Index < b.Index
		}
	})
}
