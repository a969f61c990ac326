package usi

import (
	"strconv"
	"strings"
)

// Analysis holds the ragged score/nodes/time/pv tables accumulated from
// "info" lines during a single search, indexed [multipv-1][depth]. Cells
// that were never reported are nil.
type Analysis struct {
	Scores [][]*int64
	Nodes  [][]*int64
	Times  [][]*int64
	PVs    [][]*string
}

// DeepestScores returns the deepest recorded score per PV, in PV order.
func (a *Analysis) DeepestScores() []int64 {
	var ret []int64
	for _, row := range a.Scores {
		for i := len(row) - 1; i >= 0; i-- {
			if row[i] != nil {
				ret = append(ret, *row[i])
				break
			}
		}
	}
	return ret
}

// DeepestNodes returns the deepest recorded node count for the first PV.
func (a *Analysis) DeepestNodes() (int64, bool) {
	if len(a.Nodes) == 0 {
		return 0, false
	}
	for i := len(a.Nodes[0]) - 1; i >= 0; i-- {
		if a.Nodes[0][i] != nil {
			return *a.Nodes[0][i], true
		}
	}
	return 0, false
}

// infoParser accumulates info lines into an Analysis. The bound table
// tracks whether the score at a cell is a lowerbound/upperbound: a bound
// score may be replaced by any later score, a final score only by another
// final score.
type infoParser struct {
	analysis Analysis
	bound    [][]*bool
}

func setCell[T any](table *[][]*T, multipv, depth int, value T) {
	for len(*table) < multipv {
		*table = append(*table, []*T{})
	}
	row := (*table)[multipv-1]
	for len(row) <= depth {
		row = append(row, nil)
	}
	row[depth] = &value
	(*table)[multipv-1] = row
}

func cellAt[T any](table [][]*T, multipv, depth int) (T, bool) {
	var zero T
	if len(table) < multipv || len(table[multipv-1]) <= depth {
		return zero, false
	}
	if v := table[multipv-1][depth]; v != nil {
		return *v, true
	}
	return zero, false
}

// parse consumes one "info" argument string. Tokens are processed in
// order; unknown fields are skipped. A missing depth means no table
// update; a missing multipv means the first PV.
func (p *infoParser) parse(arg string) {
	tokens := strings.Fields(arg)
	depth := -1
	multipv := 1

	pop := func() (string, bool) {
		if len(tokens) == 0 {
			return "", false
		}
		t := tokens[0]
		tokens = tokens[1:]
		return t, true
	}
	popInt := func() (int64, bool) {
		t, ok := pop()
		if !ok {
			return 0, false
		}
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	for {
		parameter, ok := pop()
		if !ok {
			return
		}

		switch parameter {
		case "multipv":
			if n, ok := popInt(); ok {
				multipv = int(n)
			}
		case "depth":
			if n, ok := popInt(); ok {
				depth = int(n)
			}
		case "nodes":
			if n, ok := popInt(); ok && depth >= 0 {
				setCell(&p.analysis.Nodes, multipv, depth, n)
			}
		case "time":
			if n, ok := popInt(); ok && depth >= 0 {
				setCell(&p.analysis.Times, multipv, depth, n)
			}
		case "score":
			kind, ok := pop()
			if !ok {
				return
			}
			raw, ok := popInt()
			if !ok {
				return
			}
			value := EncodeScore(kind, raw)

			isBound := false
			if len(tokens) > 0 && (tokens[0] == "lowerbound" || tokens[0] == "upperbound") {
				isBound = true
				tokens = tokens[1:]
			}
			if depth < 0 {
				continue
			}

			wasBound, present := cellAt(p.bound, multipv, depth)
			if !present || wasBound || !isBound {
				setCell(&p.bound, multipv, depth, isBound)
				setCell(&p.analysis.Scores, multipv, depth, value)
			}
		case "pv":
			if depth >= 0 {
				setCell(&p.analysis.PVs, multipv, depth, strings.Join(tokens, " "))
			}
			return
		default:
			// Unknown info fields are ignored.
		}
	}
}
