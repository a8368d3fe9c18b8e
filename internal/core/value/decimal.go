package value

import (
	"strconv"

	"github.com/cockroachdb/apd/v2"
)

// decimalCtx mirrors the precision the teacher's pkg/internal.CallCtxt
// extracts numbers at (pkg/internal/context.go's (*CallCtxt).Decimal):
// apd.Decimal gives us a canonical, round-trip-safe textual form for
// floats instead of Go's strconv shortest-round-trip heuristics, which
// can surprise users with scientific notation at awkward magnitudes.
var decimalCtx = apd.BaseContext.WithPrecision(34)

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatFloat renders f the way `to_string` presents a CS float: a plain
// decimal, not Go's occasionally-scientific %v form.
func formatFloat(f float64) string {
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	var rounded apd.Decimal
	_, _ = decimalCtx.Round(&rounded, &d)
	return rounded.Text('f')
}
