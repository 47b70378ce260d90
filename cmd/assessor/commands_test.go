package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/engine"
)

func TestFormatFromExt(t *testing.T) {
	assert.Equal(t, domain.FormatJSON, formatFromExt("quiz.JSON"))
	assert.Equal(t, domain.FormatYAML, formatFromExt("quiz.yml"))
	assert.Equal(t, domain.FormatYAML, formatFromExt("quiz.yaml"))
	assert.Equal(t, domain.FormatText, formatFromExt("quiz.txt"))
	assert.Equal(t, domain.FormatText, formatFromExt("quiz"))
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- text: What is 2+2?\n  answer: \"4\"\n"), 0o600))

	doc, err := readDocument(path, "")
	require.NoError(t, err)
	assert.Equal(t, "quiz.yaml", doc.Name)
	assert.Equal(t, domain.FormatYAML, doc.Format)

	doc, err = readDocument(path, domain.FormatText)
	require.NoError(t, err)
	assert.Equal(t, domain.FormatText, doc.Format, "an explicit format wins")

	_, err = readDocument(filepath.Join(t.TempDir(), "missing.txt"), "")
	require.Error(t, err)
}

func TestCollectFeedback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.yaml")
	require.NoError(t, os.WriteFile(path, []byte("q1:\n  score: 3\n  notes: from file\nq2:\n  notes: keep\n"), 0o600))

	fb, err := collectFeedback(path, []string{"q1=7.5", "q3=0"}, []string{"q3=flag wins"})
	require.NoError(t, err)

	require.Len(t, fb, 3)
	require.NotNil(t, fb["q1"].Score)
	assert.InDelta(t, 7.5, *fb["q1"].Score, 1e-9)
	assert.Equal(t, "from file", fb["q1"].Notes)
	assert.Nil(t, fb["q2"].Score)
	assert.Equal(t, "keep", fb["q2"].Notes)
	require.NotNil(t, fb["q3"].Score)
	assert.Zero(t, *fb["q3"].Score)
	assert.Equal(t, "flag wins", fb["q3"].Notes)
}

func TestCollectFeedback_Errors(t *testing.T) {
	_, err := collectFeedback("", []string{"q1"}, nil)
	require.Error(t, err)

	_, err = collectFeedback("", []string{"=3"}, nil)
	require.Error(t, err)

	_, err = collectFeedback("", []string{"q1=high"}, nil)
	require.Error(t, err)

	_, err = collectFeedback(filepath.Join(t.TempDir(), "missing.yaml"), nil, nil)
	require.Error(t, err)
}

func TestRootCmd_StatusUnknownSession(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"status", "missing"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrUnknownSession)
}

func TestRootCmd_ExplicitEnvFileMustExist(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"status", "missing", "--env-file", filepath.Join(t.TempDir(), "absent.env")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}

func TestRootCmd_ListEmpty(t *testing.T) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"list"})

	require.NoError(t, cmd.Execute())
	assert.JSONEq(t, "[]", out.String())
}
