package eval

import (
	"src.strand.sh/pkg/diag"
	"src.strand.sh/pkg/eval/errs"
	"src.strand.sh/pkg/eval/vals"
)

// Raised by a matching branch to stop the search, carrying the result of the
// handler. It is caught by the enclosing caseOp and never escapes it.
type branchSelected struct {
	w World
	v any
}

func (*branchSelected) Error() string { return "branch selected outside case" }

type caseOp struct {
	ctx      *diag.Context
	target   op
	branches []*caseBranch
	// Nil when the expression has no explicit fallback.
	fallback     op
	fallbackSite *callSite
}

type caseBranch struct {
	pattern op
	handler op
	sites   *arityCallSites
}

func (o *caseOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	w, target, err := o.target.exec(th, fm, w)
	if err != nil {
		return w, nil, err
	}
	for _, b := range o.branches {
		w, err = b.try(th, fm, w, target)
		switch e := err.(type) {
		case nil:
			continue
		case *branchSelected:
			return e.w, e.v, nil
		default:
			return w, nil, th.errorp(o.ctx, err)
		}
	}
	if o.fallback == nil {
		return w, nil, th.errorp(o.ctx, errs.InexhaustiveMatch{Target: vals.Repr(target)})
	}
	w, handler, err := o.fallback.exec(th, fm, w)
	if err != nil {
		return w, nil, err
	}
	w, v, err := th.apply(o.fallbackSite, handler, w, []any{target})
	return w, v, th.errorp(o.ctx, err)
}

// Evaluates the pattern and, if it matches, calls the handler with the fields
// of the target. A match is reported by returning a *branchSelected; a nil
// error means the branch does not match.
func (b *caseBranch) try(th *Thread, fm *Frame, w World, target any) (World, error) {
	w, pattern, err := b.pattern.exec(th, fm, w)
	if err != nil {
		return w, err
	}
	fields, ok, err := matchPattern(pattern, target)
	if err != nil || !ok {
		return w, err
	}
	w, handler, err := b.handler.exec(th, fm, w)
	if err != nil {
		return w, err
	}
	w, v, err := th.apply(b.sites.get(len(fields)), handler, w, fields)
	if err != nil {
		return w, err
	}
	return w, &branchSelected{w, v}
}

// Matches a target against a pattern, which may be a constructor, an atom
// standing for its constructor, or a number.
func matchPattern(pattern, target any) ([]any, bool, error) {
	var cons *Constructor
	switch p := pattern.(type) {
	case *Constructor:
		cons = p
	case *Atom:
		cons = p.cons
	case int64, float64:
		return nil, vals.IsNumber(target) && vals.Equal(p, target), nil
	default:
		return nil, false, errs.TypeMismatch{
			What: "case pattern", Valid: "constructor, atom or number",
			Actual: vals.Kind(pattern)}
	}
	if a, ok := target.(*Atom); ok && a.cons == cons {
		return a.fields, true, nil
	}
	return nil, false, nil
}
