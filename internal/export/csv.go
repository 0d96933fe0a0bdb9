package export

import (
	"io"
	"strings"
)

// quotedWriter writes CSV rows with every field wrapped in double quotes.
// encoding/csv only quotes fields that need it, so rows are built here.
type quotedWriter struct {
	w   io.Writer
	err error
}

func newQuotedWriter(w io.Writer) *quotedWriter {
	return &quotedWriter{w: w}
}

// Write appends one row. The first error is retained and later writes are no-ops.
func (q *quotedWriter) Write(fields []string) {
	if q.err != nil {
		return
	}

	var sb strings.Builder
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(field, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteByte('\n')

	_, q.err = io.WriteString(q.w, sb.String())
}

// Err returns the first write error, if any.
func (q *quotedWriter) Err() error {
	return q.err
}
