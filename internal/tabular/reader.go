// Package tabular reads and writes the CSV forms of topics and revisions.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"studydesk/internal/desk"
)

// TopicHeader is the column layout of topic files.
var TopicHeader = []string{"name", "category", "resource", "position"}

// RevisionHeader is the column layout of revision exports.
var RevisionHeader = []string{"topic_name", "entry_date", "revision_1", "revision_2", "revision_3", "revision_4", "revision_5"}

// ReadTopics reads topic rows from r. The first record is treated as a
// header when its first cell is "name". Rows that cannot be read are
// returned with ParseErr set so the caller can report them; only I/O
// failures abort the read. An unterminated quote swallows every line up to
// the end of the input; the resulting row names the lines it lost.
func ReadTopics(r io.Reader) ([]desk.TopicRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		rows  []desk.TopicRow
		first = true
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rows = append(rows, desk.TopicRow{Line: pe.StartLine, ParseErr: quoteError(pe)})
				first = false
				continue
			}
			return nil, fmt.Errorf("reading topics: %w", err)
		}

		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), TopicHeader[0]) {
				continue
			}
		}
		rows = append(rows, parseTopicRecord(line, record))
	}
	return rows, nil
}

func quoteError(pe *csv.ParseError) error {
	if pe.Line > pe.StartLine {
		return fmt.Errorf("%w (lines %d-%d not imported)", pe.Err, pe.StartLine, pe.Line)
	}
	return pe.Err
}

func parseTopicRecord(line int, record []string) desk.TopicRow {
	row := desk.TopicRow{Line: line}
	if len(record) < 3 || len(record) > 4 {
		row.ParseErr = fmt.Errorf("expected 3 or 4 fields, got %d", len(record))
		return row
	}
	if len(record) == 4 {
		if p := strings.TrimSpace(record[3]); p != "" {
			if _, err := strconv.Atoi(p); err != nil {
				row.ParseErr = fmt.Errorf("position %q is not an integer", p)
				return row
			}
		}
	}
	row.Name = record[0]
	row.Category = record[1]
	row.Resource = record[2]
	return row
}
