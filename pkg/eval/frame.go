package eval

// Frame holds the local slots of one activation of a function body, or of a
// top-level evaluation. The up link points to the frame the function was
// defined in, not the caller's.
//
// The set of slots of a Frame never changes after creation; only slot values
// are written.
type Frame struct {
	up    *Frame
	slots []any
}

func (fm *Frame) outer(up int) *Frame {
	for ; up > 0; up-- {
		fm = fm.up
	}
	return fm
}

// Static counterpart of a Frame, used during compilation. Names are appended
// as they are declared; a later declaration shadows an earlier one.
type staticFrame struct {
	names []string
}

func (sf *staticFrame) add(name string) int {
	sf.names = append(sf.names, name)
	return len(sf.names) - 1
}

func (sf *staticFrame) lookup(name string) (int, bool) {
	for i := len(sf.names) - 1; i >= 0; i-- {
		if sf.names[i] == name {
			return i, true
		}
	}
	return -1, false
}
