package main

import (
	"bytes"
	"strings"
	"testing"

	"weavecore/replica"

	"github.com/stretchr/testify/require"
)

func TestRunScriptInsertAndText(t *testing.T) {
	r := replica.New(replica.Configuration{Source: "A"})
	var out bytes.Buffer

	script := strings.NewReader("insert BASE Hi\ntext\n")
	require.NoError(t, runScript(r, script, &out))
	require.Equal(t, "Hi\n", out.String())
}

func TestRunScriptIgnoresBlankAndCommentLines(t *testing.T) {
	r := replica.New(replica.Configuration{Source: "A"})
	var out bytes.Buffer

	script := strings.NewReader("\n# a comment\ninsert BASE ab\n\ntext\n")
	require.NoError(t, runScript(r, script, &out))
	require.Equal(t, "ab\n", out.String())
}

func TestRunScriptRemoveByID(t *testing.T) {
	r := replica.New(replica.Configuration{Source: "A"})
	_, err := r.InsertCharsAt("00000+swarm", "abc", nil)
	require.NoError(t, err)
	atomB, err := r.GetCharAt(2)
	require.NoError(t, err)

	var out bytes.Buffer
	script := strings.NewReader("remove " + string(atomB.ID) + "\ntext\n")
	require.NoError(t, runScript(r, script, &out))
	require.Equal(t, "ac\n", out.String())
}

func TestRunScriptRejectsUnknownCommand(t *testing.T) {
	r := replica.New(replica.Configuration{Source: "A"})
	var out bytes.Buffer
	err := runScript(r, strings.NewReader("frobnicate\n"), &out)
	require.Error(t, err)
}
