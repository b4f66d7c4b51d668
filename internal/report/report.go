// Package report turns a visiting order into per-leg and cumulative
// distances and renders them as an aligned text table.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"tour-planner/internal/matrix"
)

// ErrBadSequence is returned when a sequence index or name lookup is out of range
var ErrBadSequence = errors.New("report: sequence does not fit the matrix")

// Options controls how a sequence is reported.
type Options struct {
	// Names labels global node indices. Nil labels nodes by index.
	Names []string
	// Offset is added to every sequence index to get its global index,
	// for sequences solved on a sub-matrix.
	Offset int
	// Closed adds the leg from the last node back to the first.
	Closed bool
}

// Leg is one hop of the sequence.
type Leg struct {
	From     int   `json:"from"`
	To       int   `json:"to"`
	Distance int64 `json:"distance"`
	Known    bool  `json:"known"`
	// Cumulative is the sum of known legs up to and including this one.
	Cumulative int64 `json:"cumulative"`
}

// Report is the leg breakdown of a sequence. Indices are global.
type Report struct {
	Indices []int    `json:"indices"`
	Names   []string `json:"names"`
	Legs    []Leg    `json:"legs"`
	// Total sums the known legs only.
	Total int64 `json:"total"`
	// UnknownLegs counts legs whose distance is not in the matrix.
	UnknownLegs int  `json:"unknown_legs"`
	Closed      bool `json:"closed"`
}

// Complete reports whether every leg distance is known.
func (r *Report) Complete() bool {
	return r.UnknownLegs == 0
}

// Build computes the report for seq over m. seq holds indices into m.
func Build(m *matrix.Matrix, seq []int, opts Options) (*Report, error) {
	n := m.Size()
	r := &Report{
		Indices: make([]int, len(seq)),
		Names:   make([]string, len(seq)),
		Legs:    []Leg{},
		Closed:  opts.Closed && len(seq) > 1,
	}
	for k, v := range seq {
		if v < 0 || v >= n {
			return nil, fmt.Errorf("%w: index %d not in [0,%d)", ErrBadSequence, v, n)
		}
		global := v + opts.Offset
		r.Indices[k] = global
		switch {
		case opts.Names == nil:
			r.Names[k] = strconv.Itoa(global)
		case global < len(opts.Names):
			r.Names[k] = opts.Names[global]
		default:
			return nil, fmt.Errorf("%w: no name for node %d", ErrBadSequence, global)
		}
	}

	hops := len(seq) - 1
	if r.Closed {
		hops = len(seq)
	}
	for k := 0; k < hops; k++ {
		from, to := seq[k], seq[(k+1)%len(seq)]
		d, ok := m.At(from, to)
		leg := Leg{From: from + opts.Offset, To: to + opts.Offset, Known: ok}
		if ok {
			leg.Distance = d
			r.Total += d
		} else {
			r.UnknownLegs++
		}
		leg.Cumulative = r.Total
		r.Legs = append(r.Legs, leg)
	}
	return r, nil
}

// WriteTable renders the report with one column per visited node: the
// node index, the distance of the leg into it and the running total.
// Unknown legs print as "?" and mark every later running total with "+?".
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	rows := [4][]string{
		append([]string{"Stops:"}, r.Names...),
		{"Index"},
		{"Distance", "0"},
		{"Cumulative", "0"},
	}
	for _, idx := range r.Indices {
		rows[1] = append(rows[1], strconv.Itoa(idx))
	}
	if r.Closed {
		// The return leg lands on the first node again.
		rows[0] = append(rows[0], r.Names[0])
		rows[1] = append(rows[1], strconv.Itoa(r.Indices[0]))
	}

	unknownSeen := false
	for _, leg := range r.Legs {
		dist := strconv.FormatInt(leg.Distance, 10)
		if !leg.Known {
			dist = "?"
			unknownSeen = true
		}
		cum := strconv.FormatInt(leg.Cumulative, 10)
		if unknownSeen {
			cum += "+?"
		}
		rows[2] = append(rows[2], dist)
		rows[3] = append(rows[3], cum)
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")+"\t"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// String renders the table.
func (r *Report) String() string {
	var sb strings.Builder
	_ = r.WriteTable(&sb)
	return sb.String()
}
