// Package checkfile parses tab-separated preflight check rows into update
// requests and applies the strategy/skill selection filters.
//
// The expected header is:
//
//	skill	bucket	result	strategy	repo	remote_path	note
//
// Rows with an empty skill field, or whose skill begins with the reserved
// "summary:" marker the check phase appends, are dropped.
package checkfile

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// SummaryMarker prefixes the trailing summary row of a TSV check file
const SummaryMarker = "summary:"

// Load parses check rows from r. The first row is the header; fields
// missing from a row normalize to the empty string, and all fields are
// trimmed.
func Load(r io.Reader) ([]types.UpdateRequest, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCheckFileParse, "cannot read check file header")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var rows []types.UpdateRequest
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCheckFileParse, "cannot read check file row")
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		skill := field("skill")
		if skill == "" || strings.HasPrefix(skill, SummaryMarker) {
			continue
		}
		rows = append(rows, types.UpdateRequest{
			Skill:      skill,
			Bucket:     field("bucket"),
			Result:     field("result"),
			Strategy:   field("strategy"),
			Repo:       field("repo"),
			RemotePath: field("remote_path"),
			Note:       field("note"),
		})
	}
	return rows, nil
}

// Write renders rows as a TSV check file: the header, one line per row
// with empty fields rendered as "-", then the summary line when non-empty.
func Write(w io.Writer, rows []types.UpdateRequest, summaryLine string) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	if err := writer.Write([]string{"skill", "bucket", "result", "strategy", "repo", "remote_path", "note"}); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot write check file header")
	}
	for _, row := range rows {
		record := []string{
			row.Skill,
			orDash(row.Bucket),
			orDash(row.Result),
			orDash(row.Strategy),
			orDash(row.Repo),
			orDash(row.RemotePath),
			orDash(row.Note),
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot write check file row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot write check file")
	}
	if summaryLine != "" {
		if _, err := io.WriteString(w, summaryLine+"\n"); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot write check file summary")
		}
	}
	return nil
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// Filter applies the conjunctive selection filters: a non-empty strategy
// set excludes rows whose strategy is absent from it, and independently a
// non-empty skill set excludes rows whose name is absent from it. An empty
// set excludes nothing on that axis.
func Filter(rows []types.UpdateRequest, strategies, skills []string) []types.UpdateRequest {
	strategySet := toSet(strategies)
	skillSet := toSet(skills)

	var out []types.UpdateRequest
	for _, row := range rows {
		if len(strategySet) > 0 && !strategySet[row.Strategy] {
			continue
		}
		if len(skillSet) > 0 && !skillSet[row.Skill] {
			continue
		}
		out = append(out, row)
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			set[v] = true
		}
	}
	return set
}
