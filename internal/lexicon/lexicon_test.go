package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefault(t *testing.T) {
	lx := Default()

	assert.Len(t, lx.Symptoms(), 17)
	assert.Len(t, lx.RedFlags(), 14)
	assert.Equal(t, "headache", lx.Symptoms()[0])
	assert.Equal(t, []SeverityWord{
		{Word: "mild", Score: 1},
		{Word: "moderate", Score: 2},
		{Word: "severe", Score: 3},
		{Word: "worst", Score: 3},
	}, lx.Severity())
	assert.True(t, lx.HasSymptom(" Fever "))
	assert.False(t, lx.HasSymptom("hiccups"))
}

func TestDefaultIsNotMutable(t *testing.T) {
	lx := Default()
	s := lx.Symptoms()
	s[0] = "changed"
	assert.Equal(t, "headache", lx.Symptoms()[0])
}

func TestDurationPattern(t *testing.T) {
	re := Default().Duration()

	m := re.FindStringSubmatch("Fever for 3 Days and 2 weeks")
	require.NotNil(t, m)
	assert.Equal(t, "3", m[1])
	assert.Equal(t, "Days", m[2])

	m = re.FindStringSubmatch("since 12  hours")
	require.NotNil(t, m)
	assert.Equal(t, "12", m[1])
	assert.Equal(t, "hours", m[2])

	assert.Nil(t, re.FindStringSubmatch("for a while"))
}

func TestParse(t *testing.T) {
	lx, err := Parse([]byte(`
symptoms: [Headache, headache, " nausea "]
red_flags: [fainting]
severity:
  - {word: slight, score: 1}
  - {word: awful, score: 3}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"headache", "nausea"}, lx.Symptoms())
	assert.Equal(t, []string{"fainting"}, lx.RedFlags())
	assert.Equal(t, "awful", lx.Severity()[1].Word)
}

func TestParseRejectsBadScore(t *testing.T) {
	_, err := Parse([]byte(`
symptoms: [headache]
red_flags: [fainting]
severity: [{word: extreme, score: 9}]
`))
	assert.Error(t, err)
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse([]byte(`severity: [{word: mild, score: 1}]`))
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestLoadFallsBackToDefault(t *testing.T) {
	lx := Load(filepath.Join(t.TempDir(), "missing.yaml"), zap.NewNop())
	assert.Equal(t, Default().Symptoms(), lx.Symptoms())

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("symptoms: [unclosed"), 0o600))
	lx = Load(bad, nil)
	assert.Equal(t, Default().RedFlags(), lx.RedFlags())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
symptoms: [cough]
red_flags: [blue lips]
severity: [{word: mild, score: 1}]
`), 0o600))

	lx := Load(path, zap.NewNop())
	assert.Equal(t, []string{"cough"}, lx.Symptoms())
}
