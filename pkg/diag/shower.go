package diag

import (
	"fmt"
	"io"
)

// Shower wraps the Show function.
type Shower interface {
	// Show takes an indentation string and shows.
	Show(indent string) string
}

// ShowError writes an error to w. It uses the Show method if the error
// implements Shower and color is true; otherwise only the plain message is
// written.
func ShowError(w io.Writer, err error, color bool) {
	if shower, ok := err.(Shower); ok && color {
		fmt.Fprintln(w, shower.Show(""))
	} else if color {
		fmt.Fprintf(w, "\033[31;1m%s\033[m\n", err.Error())
	} else {
		fmt.Fprintln(w, err.Error())
	}
}
