package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchArgs(extra ...string) []string {
	return append([]string{"match", "--world", testWorld, "--productions", testProductions}, extra...)
}

func TestMatchText(t *testing.T) {
	out, err := execute(t, matchArgs("--location", "Inn")...)
	require.NoError(t, err)

	assert.Contains(t, out, "Inn: 3 applicable production(s)")
	assert.Contains(t, out, "Buy item (2 variant(s))")
	assert.Contains(t, out, "Hero buys the Sword from Merchant.")
	assert.Contains(t, out, "Hero buys the Dagger from Merchant.")
	assert.Contains(t, out, "Knight (1 variant(s))")
	assert.Contains(t, out, "Travel (2 variant(s))")
	assert.Contains(t, out, "S -> Sword")
}

func TestMatchJSON(t *testing.T) {
	out, err := execute(t, append([]string{"--format", "json"}, matchArgs("--location", "Inn", "--subject", "Hero")...)...)
	require.NoError(t, err)

	var result MatchResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Inn", result.Location)
	assert.Equal(t, "Hero", result.Subject)

	require.Len(t, result.Productions, 3)
	titles := []string{result.Productions[0].Title, result.Productions[1].Title, result.Productions[2].Title}
	assert.Equal(t, []string{"Buy item", "Knight", "Travel"}, titles)

	travel := result.Productions[2]
	require.Len(t, travel.Variants, 1)
	v := travel.Variants[0]
	assert.Equal(t, 0, v.Index)
	assert.NotEmpty(t, v.Hash)
	assert.Equal(t, "Hero sets off down the road.", v.Description)

	bound := make(map[string]string)
	for _, b := range v.Bindings {
		bound[b.PatternRef] = b.WorldName
	}
	assert.Equal(t, map[string]string{"L": "Inn", "P": "Hero", "R": "Road"}, bound)
}

func TestMatchVariantsAreDistinct(t *testing.T) {
	out, err := execute(t, append([]string{"--format", "json"}, matchArgs("--location", "Inn")...)...)
	require.NoError(t, err)

	var result MatchResult
	decode(t, out, &result)
	require.NotEmpty(t, result.Productions)

	buy := result.Productions[0]
	require.Len(t, buy.Variants, 2)
	assert.NotEqual(t, buy.Variants[0].Hash, buy.Variants[1].Hash)
	assert.Equal(t, 1, buy.Variants[1].Index)
}

func TestMatchNothingApplies(t *testing.T) {
	out, err := execute(t, matchArgs("--location", "Road")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing applies at Road.")
}

func TestMatchErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown location", matchArgs("--location", "Castle"), ErrCodeNotFound},
		{"subject elsewhere", matchArgs("--location", "Road", "--subject", "Hero"), ErrCodeNotFound},
		{"missing world", []string{"match", "--world", "testdata/none.json", "--productions", testProductions, "--location", "Inn"}, ErrCodeNotFound},
		{"invalid productions", []string{"match", "--world", testWorld, "--productions", "testdata/invalid_productions.json", "--location", "Inn"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decode(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			if tt.code != "" {
				assert.Equal(t, tt.code, resp.Error.Code)
			} else {
				assert.Regexp(t, `^E1\d\d$`, resp.Error.Code)
			}
		})
	}
}

func TestMatchRequiresFlags(t *testing.T) {
	_, err := execute(t, "match", "--world", testWorld, "--productions", testProductions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"location" not set`)
}

func TestMatchVerboseReportsWork(t *testing.T) {
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"-v"}, matchArgs("--location", "Inn")...))

	require.NoError(t, cmd.Execute())
	for _, title := range []string{"Buy item", "Knight", "Travel"} {
		assert.Regexp(t, title+`: \d+ neighbor pass\(es\), \d+ combination\(s\)`, errOut.String())
	}
}
