package checkfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/skillsync/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []types.UpdateRequest
	}{
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "header only",
			input: "skill\tbucket\tresult\tstrategy\trepo\tremote_path\tnote\n",
			want:  nil,
		},
		{
			name: "basic rows",
			input: "skill\tbucket\tresult\tstrategy\trepo\tremote_path\tnote\n" +
				"pdf\tuser\tOK\tupdate-via-github\topenai/skills\tskills/.curated/pdf\tok (name match)\n" +
				"docx\tuser\tFAIL\tupdate-via-github\topenai/skills\tskills/.curated/docx\tnot found\n",
			want: []types.UpdateRequest{
				{Skill: "pdf", Bucket: "user", Result: "OK", Strategy: "update-via-github",
					Repo: "openai/skills", RemotePath: "skills/.curated/pdf", Note: "ok (name match)"},
				{Skill: "docx", Bucket: "user", Result: "FAIL", Strategy: "update-via-github",
					Repo: "openai/skills", RemotePath: "skills/.curated/docx", Note: "not found"},
			},
		},
		{
			name: "summary row and empty skill dropped",
			input: "skill\tbucket\tresult\tstrategy\trepo\tremote_path\tnote\n" +
				"pdf\tuser\tOK\tupdate-via-github\tr\tp\tn\n" +
				"\tuser\tOK\tupdate-via-github\tr\tp\tn\n" +
				"summary: total=2 ok=1 fail=0 skip=1\n",
			want: []types.UpdateRequest{
				{Skill: "pdf", Bucket: "user", Result: "OK", Strategy: "update-via-github",
					Repo: "r", RemotePath: "p", Note: "n"},
			},
		},
		{
			name: "reordered header columns",
			input: "strategy\tskill\tresult\n" +
				"install-from-local-archive\tpdf\tSKIP\n",
			want: []types.UpdateRequest{
				{Skill: "pdf", Result: "SKIP", Strategy: "install-from-local-archive"},
			},
		},
		{
			name: "short rows normalize to empty fields",
			input: "skill\tbucket\tresult\tstrategy\trepo\tremote_path\tnote\n" +
				"pdf\tuser\n",
			want: []types.UpdateRequest{
				{Skill: "pdf", Bucket: "user"},
			},
		},
		{
			name: "fields are trimmed",
			input: "skill\tbucket\tresult\tstrategy\trepo\tremote_path\tnote\n" +
				" pdf \t user \tOK\tupdate-via-github\tr\tp\t n \n",
			want: []types.UpdateRequest{
				{Skill: "pdf", Bucket: "user", Result: "OK", Strategy: "update-via-github",
					Repo: "r", RemotePath: "p", Note: "n"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Load(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestFilter(t *testing.T) {
	rows := []types.UpdateRequest{
		{Skill: "pdf", Strategy: types.StrategyGitHub},
		{Skill: "docx", Strategy: types.StrategyGitHub},
		{Skill: "xlsx", Strategy: types.StrategyLocalArchive},
	}

	tests := []struct {
		name       string
		strategies []string
		skills     []string
		want       []string
	}{
		{
			name: "no filters selects all",
			want: []string{"pdf", "docx", "xlsx"},
		},
		{
			name:       "strategy filter",
			strategies: []string{types.StrategyLocalArchive},
			want:       []string{"xlsx"},
		},
		{
			name:   "skill filter",
			skills: []string{"docx", "pdf"},
			want:   []string{"pdf", "docx"},
		},
		{
			name:       "filters are conjunctive",
			strategies: []string{types.StrategyGitHub},
			skills:     []string{"pdf", "xlsx"},
			want:       []string{"pdf"},
		},
		{
			name:       "blank filter values ignored",
			strategies: []string{" ", ""},
			want:       []string{"pdf", "docx", "xlsx"},
		},
		{
			name:   "no match selects nothing",
			skills: []string{"missing"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(rows, tt.strategies, tt.skills)
			var names []string
			for _, row := range got {
				names = append(names, row.Skill)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	rows := []types.UpdateRequest{
		{Skill: "pdf", Bucket: "user", Result: "OK", Strategy: types.StrategyGitHub,
			Repo: "openai/skills", RemotePath: "skills/.curated/pdf", Note: "ok (name match)"},
		{Skill: "docx", Bucket: "user", Result: "SKIP", Strategy: types.StrategyManualMap},
	}

	var buf strings.Builder
	err := Write(&buf, rows, "summary: total=2 ok=1 fail=0 skip=1")
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "skill\tbucket\tresult\tstrategy\trepo\tremote_path\tnote\n"))
	assert.Contains(t, out, "docx\tuser\tSKIP\tmanual-source-map-required\t-\t-\t-\n")
	assert.True(t, strings.HasSuffix(out, "summary: total=2 ok=1 fail=0 skip=1\n"))

	parsed, err := Load(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, rows[0], parsed[0])
	// Empty fields round-trip as "-", which HasRemote treats as unset.
	assert.Equal(t, "docx", parsed[1].Skill)
	assert.False(t, parsed[1].HasRemote())
}
