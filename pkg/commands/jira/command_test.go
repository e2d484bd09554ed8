package jira

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SplitFields(t *testing.T) {
	assert.Equal(t, []string{"summary", "status"}, splitFields(" summary, ,status,"))
	assert.Nil(t, splitFields(""))
}

func Test_ParseFieldValues(t *testing.T) {
	fields, err := parseFieldValues([]string{"customfield_10010=abc", " labels =a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"customfield_10010": "abc",
		"labels":            "a=b",
	}, fields)

	fields, err = parseFieldValues(nil)
	require.NoError(t, err)
	assert.Nil(t, fields)

	_, err = parseFieldValues([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseFieldValues([]string{"=value"})
	assert.Error(t, err)
}
