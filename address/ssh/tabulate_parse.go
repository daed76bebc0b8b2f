package ssh

import (
	"fmt"
	"strings"
)

type tabulateParseColumn struct {
	header string
	start  int
	end    int
}

// TabulateParse parses fixed-width tables whose header row is underlined
// with dashes. Lines above the header are skipped. The last column extends
// to the end of each line.
func TabulateParse(b []byte) ([]map[string]string, error) {
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	dashes := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i > 0 && trimmed != "" && strings.Trim(trimmed, "- ") == "" {
			dashes = i
			break
		}
	}
	if dashes < 1 {
		return nil, fmt.Errorf("invalid input: no header underline found")
	}

	underline := lines[dashes]
	columns := []tabulateParseColumn{}
	currentColumnLength := 0
	for i := 0; i < len(underline); i++ {
		if underline[i] == '-' {
			currentColumnLength++
		} else if currentColumnLength > 0 {
			columns = append(columns, tabulateParseColumn{
				start: i - currentColumnLength,
				end:   i,
			})
			currentColumnLength = 0
		}
	}
	if currentColumnLength > 0 {
		columns = append(columns, tabulateParseColumn{
			start: len(underline) - currentColumnLength,
			end:   len(underline),
		})
	}
	// Columns own the gap up to the next column.
	for i := range columns {
		if i+1 < len(columns) {
			columns[i].end = columns[i+1].start
		} else {
			columns[i].end = -1
		}
	}

	header := lines[dashes-1]
	for i, column := range columns {
		columns[i].header = cut(header, column.start, column.end)
	}

	rows := []map[string]string{}
	for _, line := range lines[dashes+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row := map[string]string{}
		for _, column := range columns {
			row[column.header] = cut(line, column.start, column.end)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cut(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end < 0 || end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}
