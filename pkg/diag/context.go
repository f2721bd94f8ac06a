package diag

import (
	"fmt"
	"strings"
)

// Context is a range of text in a source code. It is used for compilation
// errors and for the entries of an exception's stack trace.
type Context struct {
	Name   string
	Source string
	Ranging
}

// NewContext creates a new Context.
func NewContext(name, source string, r Ranger) *Context {
	return &Context{name, source, r.Range()}
}

// Show shows the Context, with the position on the first line and the
// relevant source excerpt on the next.
func (c *Context) Show(sourceIndent string) string {
	if !c.hasSource() {
		return c.describe()
	}
	return c.describe() + ":\n" + sourceIndent + c.relevantSource(sourceIndent)
}

// ShowCompact is like Show, but with no line break between the position and
// the source excerpt.
func (c *Context) ShowCompact(sourceIndent string) string {
	if !c.hasSource() {
		return c.describe()
	}
	desc := c.describe() + ": "
	return desc + c.relevantSource(sourceIndent+strings.Repeat(" ", len(desc)))
}

func (c *Context) hasSource() bool {
	return c.From >= 0 && c.From <= c.To && c.To <= len(c.Source)
}

func (c *Context) describe() string {
	switch {
	case c.From == -1:
		return c.Name + ", unknown position"
	case !c.hasSource():
		return fmt.Sprintf("%s, bytes %d-%d", c.Name, c.From, c.To)
	}
	begin := strings.Count(c.Source[:c.From], "\n") + 1
	end := begin + strings.Count(strings.TrimSuffix(c.Source[c.From:c.To], "\n"), "\n")
	if begin == end {
		return fmt.Sprintf("%s, line %d", c.Name, begin)
	}
	return fmt.Sprintf("%s, line %d-%d", c.Name, begin, end)
}

func (c *Context) relevantSource(sourceIndent string) string {
	before, culprit, after := c.Source[:c.From], c.Source[c.From:c.To], c.Source[c.To:]
	head := before[strings.LastIndexByte(before, '\n')+1:]
	var tail string
	if strings.HasSuffix(culprit, "\n") {
		culprit = culprit[:len(culprit)-1]
	} else if i := strings.IndexByte(after, '\n'); i != -1 {
		tail = after[:i]
	} else {
		tail = after
	}
	if culprit == "" {
		culprit = "^"
	}

	var sb strings.Builder
	sb.WriteString(head)
	for i, line := range strings.Split(culprit, "\n") {
		if i > 0 {
			sb.WriteString("\n" + sourceIndent)
		}
		sb.WriteString("\033[1;4m" + line + "\033[m")
	}
	sb.WriteString(tail)
	return sb.String()
}
