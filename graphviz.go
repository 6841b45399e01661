package fsm

import "github.com/enetx/g"

// ToDOT generates a DOT language string representation of the table.
// Wildcard rules are drawn from every state without an exact rule for the event.
func (t *Table) ToDOT() g.String { return t.dot("", "") }

// ToDOT generates a DOT language string representation of the FSM for visualization.
// The current state is highlighted.
func (f *FSM) ToDOT() g.String { return f.table.dot(f.initial, f.current) }

func (t *Table) dot(initial, current State) g.String {
	b := g.NewBuilder()

	b.WriteString("digraph FSM {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString(
		"  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n",
	)
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	if initial != "" {
		b.WriteString("  __start [shape=point, style=invis];\n")
		b.WriteString(g.Format("  __start -> \"{}\" [label=\" initial\"];\n\n", initial))
	}

	states := t.States()
	if initial != "" && !states.Contains(initial) {
		states.Push(initial)
	}

	grouped := g.NewMap[g.Pair[State, State], g.Slice[g.String]]()
	var edges g.Slice[g.Pair[State, State]]

	addEdge := func(from State, rule Transition) {
		key := g.Pair[State, State]{Key: from, Value: rule.To}

		label := g.String(rule.Event)
		if rule.Guard != nil {
			label += " (guarded)"
		}

		if _, ok := grouped[key]; !ok {
			edges.Push(key)
		}

		grouped.Entry(key).
			AndModify(func(s *g.Slice[g.String]) { s.Push(label) }).
			OrInsert(g.SliceOf(label))
	}

	for _, rule := range t.Transitions() {
		if rule.From != AnyState {
			addEdge(rule.From, rule)
			continue
		}

		for _, from := range states {
			if _, exact := t.rules[ruleKey{from: from, event: rule.Event}]; !exact {
				addEdge(from, rule)
			}
		}
	}

	outgoing := g.NewSet[State]()
	for _, p := range edges {
		outgoing.Insert(p.Key)
	}

	for _, state := range states {
		var attrs g.Slice[g.String]
		attrs.Push(g.Format("label=\"{}\"", state))

		switch {
		case current != "" && state == current:
			attrs.Push("fillcolor=\"#90ee90\"", "shape=doublecircle")
		case !outgoing.Contains(state):
			attrs.Push("fillcolor=\"#d3d3d3\"", "shape=doublecircle")
		}

		var tooltips g.Slice[g.String]

		if len(t.onEnter[state]) > 0 {
			tooltips.Push("OnEnter")
		}

		if len(t.onExit[state]) > 0 {
			tooltips.Push("OnExit")
		}

		if len(tooltips) > 0 {
			attrs.Push(g.Format("tooltip=\"{}\"", tooltips.Join("\\n")))
		}

		b.WriteString(g.Format("  \"{}\" [{}];\n", state, attrs.Join(", ")))
	}

	b.WriteByte('\n')

	for _, pair := range edges {
		labels := grouped[pair]

		var edge g.Slice[g.String]
		label := labels.Join("\\n")

		edge.Push(g.Format("label=\" {} \"", label))

		if label.Contains("(guarded)") {
			edge.Push("style=dashed", "color=red", "arrowhead=odiamond")
		}

		b.WriteString(g.Format("  \"{}\" -> \"{}\" [{}];\n", pair.Key, pair.Value, edge.Join(", ")))
	}

	b.WriteString("}\n")

	return b.String()
}
