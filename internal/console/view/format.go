// Package view turns backend responses into immutable, display-ready view-state.
//
// Nothing here performs I/O. Each builder takes a freshly fetched response and
// returns a new value, so a refresh replaces view-state instead of patching it.
package view

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kart-io/pm-copilot/pkg/utils/json"
)

const ellipsis = "..."

var numberPrinter = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators, e.g. 1,234,567.
func FormatCount(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}

// FormatPercent renders a 0..1 fraction as a percentage with the given decimals.
// NaN and infinities render as zero.
func FormatPercent(fraction float64, decimals int) string {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		fraction = 0
	}
	return strconv.FormatFloat(fraction*100, 'f', decimals, 64) + "%"
}

// Truncate keeps the first max runes of s and appends "..." when anything was cut.
func Truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + ellipsis
}

// ProgressBar draws fraction as a fixed-width text bar.
func ProgressBar(fraction float64, width int) string {
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(math.Round(fraction * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// Stringify renders an arbitrary JSON value the way it reads in a badge.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
