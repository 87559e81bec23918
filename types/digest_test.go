package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionResultItemLooseID(t *testing.T) {
	var got []SelectionResultItem
	err := json.Unmarshal([]byte(`[
		{"id":"c1","title":"C","topic":"Go","reason":"fits"},
		{"id":9,"title":"Nine"},
		{"id":1.5e3},
		{"id":true,"topic":"bool"},
		{"id":null},
		{"title":"no id"}
	]`), &got)
	require.NoError(t, err)

	assert.Equal(t, []SelectionResultItem{
		{ID: "c1", Title: "C", Topic: "Go", Reason: "fits"},
		{ID: "9", Title: "Nine"},
		{ID: "1.5e3"},
		{ID: "", Topic: "bool"},
		{ID: ""},
		{ID: "", Title: "no id"},
	}, got)
}

func TestSelectionResultItemRejectsMalformedJSON(t *testing.T) {
	var got []SelectionResultItem
	assert.Error(t, json.Unmarshal([]byte(`[{"id":9,}]`), &got))
	assert.Error(t, json.Unmarshal([]byte(`{"id":"c1"}`), &got))
}
