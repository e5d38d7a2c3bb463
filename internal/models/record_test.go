package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_ID(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{name: "string id", rec: Record{"Id": "abc"}, want: "abc"},
		{name: "numeric id from json", rec: Record{"Id": float64(7)}, want: "7"},
		{name: "int id", rec: Record{"Id": 42}, want: "42"},
		{name: "missing id", rec: Record{"Descrizione": "x"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.ID())
		})
	}
}

func TestRecord_ID_AfterJSONRoundTrip(t *testing.T) {
	data := []byte(`{"Id":7,"Descrizione":"Cimitero Nord"}`)
	rec, err := UnmarshalData(data)
	require.NoError(t, err)
	assert.Equal(t, "7", rec.ID())
}

func TestRecord_WithID_DoesNotMutateOriginal(t *testing.T) {
	orig := Record{"Descrizione": "x"}
	withID := orig.WithID("9")

	assert.Equal(t, "9", withID.ID())
	assert.Equal(t, "", orig.ID())
}

func TestRecord_Merge(t *testing.T) {
	base := Record{"Id": "7", "Descrizione": "old", "Note": "keep"}
	merged := base.Merge(Record{"Descrizione": "new"})

	assert.Equal(t, "new", merged["Descrizione"])
	assert.Equal(t, "keep", merged["Note"])
	assert.Equal(t, "old", base["Descrizione"], "merge must not mutate the receiver")
}

func TestRecord_Descriptor(t *testing.T) {
	rec := Record{"Descrizione": "Cimitero Est", "Ordine": float64(3)}
	assert.Equal(t, "Cimitero Est", rec.Descriptor("Descrizione"))
	assert.Equal(t, "", rec.Descriptor("Missing"))
	assert.Equal(t, "3", rec.Descriptor("Ordine"))
}

func TestRecord_MarshalData_RoundTrip(t *testing.T) {
	rec := Record{"Id": "7", "Descrizione": "x", "Settore": []any{map[string]any{"Id": float64(1)}}}
	data, err := rec.MarshalData()
	require.NoError(t, err)

	back, err := UnmarshalData(data)
	require.NoError(t, err)

	want, _ := json.Marshal(rec)
	got, _ := json.Marshal(back)
	assert.JSONEq(t, string(want), string(got))
}
