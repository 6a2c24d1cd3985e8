package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFieldMapFlattens(t *testing.T) {
	fields, err := decodeFieldMap(`{
		"Name": "Jane Doe",
		"Findings": ["fever", "cough"],
		"Vitals": {"BP": "120/80"},
		"Notes": null,
		"Count": 3
	}`)
	require.NoError(t, err)

	require.Equal(t, "Jane Doe", fields["Name"])
	require.Equal(t, "fever, cough", fields["Findings"])
	require.Equal(t, `{"BP":"120/80"}`, fields["Vitals"])
	require.Equal(t, "", fields["Notes"])
	require.Equal(t, "3", fields["Count"])
}

func TestDecodeFieldMapRejectsNonJSON(t *testing.T) {
	_, err := decodeFieldMap("sorry, I cannot do that")
	require.Error(t, err)
}

func TestDecodeReplacements(t *testing.T) {
	replacements, err := decodeReplacements(`{
		"Employee": {"original": "Mr. Ali", "new": "Jane Doe"},
		"Notes": "plain value"
	}`)
	require.NoError(t, err)

	require.Equal(t, Replacement{Original: "Mr. Ali", New: "Jane Doe"}, replacements["Employee"])
	require.Equal(t, Replacement{New: "plain value"}, replacements["Notes"])
}

func TestStripCodeFence(t *testing.T) {
	require.Equal(t, `{"a":"b"}`, stripCodeFence("```json\n{\"a\":\"b\"}\n```"))
	require.Equal(t, `{"a":"b"}`, stripCodeFence(`{"a":"b"}`))
}
