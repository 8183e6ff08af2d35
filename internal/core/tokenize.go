package core

// tokenize.go turns exported delimited text into a RawTable.
//
// The splitter is a single left-to-right scan rather than encoding/csv:
// instrument exports put quotes mid-field and pad cells with spaces, and the
// torque exports need the delimiter inferred from the header line.

import (
	"strconv"
	"strings"
)

// PlaceholderPrefix names header cells that are empty in the source file.
const PlaceholderPrefix = "col_"

// candidateDelimiters are tried in order; earlier entries win ties.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// Tokenize splits text into headers and row records.
//
// An input with no content lines yields an empty RawTable, which callers
// treat as "no headers detected". Rows whose cells are all empty are dropped,
// and short rows are padded with empty strings so every row has a value for
// every header. When a header repeats, the right-most column wins.
func Tokenize(text string, mode DelimiterMode) RawTable {
	lines := contentLines(text)
	if len(lines) == 0 {
		return RawTable{}
	}

	delim := ','
	if mode == DelimiterInfer {
		delim = InferDelimiter(lines[0])
	}

	headerCells := SplitLine(lines[0], delim)
	headers := make([]string, len(headerCells))
	for i, h := range headerCells {
		if h == "" {
			h = PlaceholderPrefix + strconv.Itoa(i)
		}
		headers[i] = h
	}

	rows := make([]map[string]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := SplitLine(line, delim)
		if isEmptyRow(cells) {
			continue
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			v := ""
			if i < len(cells) {
				v = cells[i]
			}
			row[h] = v
		}
		rows = append(rows, row)
	}

	return RawTable{Headers: headers, Rows: rows}
}

// InferDelimiter counts each candidate delimiter on the header line and
// returns the most frequent one. Comma wins when nothing is found.
func InferDelimiter(headerLine string) rune {
	best := candidateDelimiters[0]
	bestCount := -1
	for _, c := range candidateDelimiters {
		if n := strings.Count(headerLine, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// SplitLine splits one line on delim. A quote toggles quoted mode, a doubled
// quote inside quoted mode is a literal quote, and a delimiter inside quoted
// mode is literal text. Every field is trimmed.
func SplitLine(line string, delim rune) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == delim && !inQuotes:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))

	return out
}

// contentLines normalizes line endings and drops blank lines.
func contentLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
