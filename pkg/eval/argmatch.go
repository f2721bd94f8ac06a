package eval

import (
	"sync/atomic"

	"src.strand.sh/pkg/eval/errs"
)

// ArgInfo describes the shape of one argument at a call site.
type ArgInfo struct {
	// Name of the argument; empty for positional arguments.
	Name string
	// Whether the argument is the "_" placeholder, which consumes a
	// parameter without supplying a value.
	Ignore bool
}

const (
	targetIgnore  = -1
	targetOversat = -2
)

// Result of matching the arguments of a call site against a schema. It
// depends only on the schema and the shapes of the arguments.
type argMapping struct {
	schema *Schema
	// For each argument, the index of the parameter it fills, or one of
	// targetIgnore and targetOversat.
	targets  []int
	nFilled  int
	nOversat int
	// Whether the function can be called after binding the arguments.
	full bool
	// The schema of the curried function when full is false.
	post *Schema
	// For each argument, whether it fills a suspended parameter; nil when
	// none does.
	suspended []bool
}

func computeMapping(s *Schema, infos []ArgInfo) (*argMapping, error) {
	n := len(s.params)
	used := make([]bool, n)
	ignored := make([]bool, n)
	m := &argMapping{schema: s, targets: make([]int, len(infos))}
	next := 0
	for i, info := range infos {
		j := -1
		if info.Name != "" {
			j = paramIndex(s, info.Name)
			if j == -1 {
				return nil, errs.UnknownArgument{Name: info.Name}
			}
			if s.preApplied[j] || used[j] {
				return nil, errs.DuplicateArgument{Name: info.Name}
			}
		} else {
			for next < n && (s.preApplied[next] || used[next]) {
				next++
			}
			if next == n {
				if info.Ignore {
					return nil, errs.ArityMismatch{
						What:     "placeholders here",
						ValidLow: 0, ValidHigh: s.Remaining(),
						Actual: countIgnores(infos)}
				}
				m.targets[i] = targetOversat
				m.nOversat++
				continue
			}
			j = next
		}
		used[j] = true
		if info.Ignore {
			ignored[j] = true
			m.targets[i] = targetIgnore
		} else {
			m.targets[i] = j
			m.nFilled++
		}
	}

	if s.suspends {
		for i, t := range m.targets {
			if t >= 0 && s.params[t].Suspended {
				if m.suspended == nil {
					m.suspended = make([]bool, len(infos))
				}
				m.suspended[i] = true
			}
		}
	}

	m.full = true
	for j, p := range s.params {
		filled := s.preApplied[j] || (used[j] && !ignored[j])
		if !filled && !(p.HasDefault && !ignored[j]) {
			m.full = false
			break
		}
	}
	if m.full {
		return m, nil
	}
	if m.nFilled == 0 {
		m.post = s
		return m, nil
	}
	post := &Schema{params: s.params, preApplied: make([]bool, n),
		nApplied: s.nApplied, suspends: s.suspends}
	for j := range s.params {
		post.preApplied[j] = s.preApplied[j] || (used[j] && !ignored[j])
	}
	post.nApplied += m.nFilled
	m.post = post
	return m, nil
}

func paramIndex(s *Schema, name string) int {
	for i, p := range s.params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func countIgnores(infos []ArgInfo) int {
	n := 0
	for _, info := range infos {
		if info.Ignore {
			n++
		}
	}
	return n
}

// Binds argument values according to the mapping. It returns the new
// pre-applied arguments and oversaturated arguments; the slices of fn are
// reused when they are unchanged.
func (m *argMapping) bind(fn *Function, args []any) ([]any, []any) {
	bound := fn.args
	if m.nFilled > 0 {
		bound = make([]any, len(fn.args))
		copy(bound, fn.args)
	}
	oversat := fn.oversat
	if m.nOversat > 0 {
		oversat = make([]any, len(fn.oversat), len(fn.oversat)+m.nOversat)
		copy(oversat, fn.oversat)
	}
	for i, t := range m.targets {
		switch {
		case t >= 0:
			bound[t] = args[i]
		case t == targetOversat:
			oversat = append(oversat, args[i])
		}
	}
	return bound, oversat
}

// Small cache of argument mappings attached to a call site, keyed by schema
// identity. Updates replace the whole snapshot; concurrent updates race and
// the last writer wins, which is harmless since entries are recomputable.
type argCache struct {
	size    int
	entries atomic.Pointer[[]*argMapping]
}

func (c *argCache) lookup(s *Schema, infos []ArgInfo) (*argMapping, error) {
	p := c.entries.Load()
	if p != nil {
		for _, m := range *p {
			if m.schema == s {
				return m, nil
			}
		}
	}
	m, err := computeMapping(s, infos)
	if err != nil {
		return nil, err
	}
	size := c.size
	if size <= 0 {
		size = 1
	}
	entries := make([]*argMapping, 1, size)
	entries[0] = m
	if p != nil {
		old := *p
		if len(old) > size-1 {
			old = old[:size-1]
		}
		entries = append(entries, old...)
	}
	c.entries.Store(&entries)
	return m, nil
}

func (c *argCache) len() int {
	if p := c.entries.Load(); p != nil {
		return len(*p)
	}
	return 0
}
