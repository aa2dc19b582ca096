package core

import (
	"bufio"
	"io"
	"strings"
)

// WriteDelimited writes rows as delimiter-separated lines in the text
// format COPY and LOAD DATA read. Backslash, delimiter, newline and
// carriage return inside values are backslash-escaped; nil values are
// written as f.Null.
func WriteDelimited(w io.Writer, f StreamFormat, rows []Row) error {
	bw := bufio.NewWriter(w)
	esc := escaper(f.Delimiter)
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				if _, err := bw.WriteRune(f.Delimiter); err != nil {
					return err
				}
			}
			var field string
			if v == nil {
				field = f.Null
			} else {
				field = esc.Replace(FormatValue(v))
			}
			if _, err := bw.WriteString(field); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func escaper(delim rune) *strings.Replacer {
	pairs := []string{`\`, `\\`, "\n", `\n`, "\r", `\r`}
	switch delim {
	case '\t':
		pairs = append(pairs, "\t", `\t`)
	default:
		pairs = append(pairs, string(delim), `\`+string(delim))
	}
	return strings.NewReplacer(pairs...)
}
