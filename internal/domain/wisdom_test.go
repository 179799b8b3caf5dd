package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWisdom() WisdomEntry {
	return WisdomEntry{
		Quote:               "As above, so below.",
		Source:              "The Emerald Tablet",
		Topic:               "Hermeticism",
		BriefInterpretation: "The macrocosm mirrors the microcosm.",
	}
}

func TestWisdomEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WisdomEntry)
		wantErr string
	}{
		{name: "valid", mutate: func(*WisdomEntry) {}},
		{name: "empty quote", mutate: func(w *WisdomEntry) { w.Quote = "" }, wantErr: "wisdom.quote"},
		{name: "blank source", mutate: func(w *WisdomEntry) { w.Source = "   " }, wantErr: "wisdom.source"},
		{name: "empty topic", mutate: func(w *WisdomEntry) { w.Topic = "" }, wantErr: "wisdom.topic"},
		{
			name:    "empty interpretation",
			mutate:  func(w *WisdomEntry) { w.BriefInterpretation = "" },
			wantErr: "wisdom.briefInterpretation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWisdom()
			tt.mutate(&w)

			err := w.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDailyRecord_Validate(t *testing.T) {
	rec := NewDailyRecord("2024-06-01", validWisdom())
	require.NoError(t, rec.Validate())

	rec.Date = "June 1st"
	assert.True(t, IsValidation(rec.Validate()))
}

func TestRecordPatch_ApplyIsMonotonic(t *testing.T) {
	rec := NewDailyRecord("2024-06-01", validWisdom())

	changed := RecordPatch{ImageURL: "data:image/png;base64,AAA"}.Apply(rec)
	assert.True(t, changed)
	assert.True(t, rec.HasImage())
	assert.False(t, rec.HasExplanation())

	changed = RecordPatch{ImageURL: "data:image/png;base64,BBB", Explanation: "E"}.Apply(rec)
	assert.True(t, changed)
	assert.Equal(t, "data:image/png;base64,AAA", rec.ImageURL, "image must not be overwritten")
	assert.Equal(t, "E", rec.Explanation)

	changed = RecordPatch{Explanation: "other"}.Apply(rec)
	assert.False(t, changed)
	assert.Equal(t, "E", rec.Explanation)

	assert.False(t, RecordPatch{}.Apply(rec))
	assert.True(t, RecordPatch{}.IsEmpty())
}

func TestDailyRecord_Clone(t *testing.T) {
	rec := NewDailyRecord("2024-06-01", validWisdom())
	c := rec.Clone()
	c.Explanation = "changed"

	assert.Empty(t, rec.Explanation)

	var nilRec *DailyRecord
	assert.Nil(t, nilRec.Clone())
}

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	utc := time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-05-31", DateKey(utc))
	assert.Equal(t, "2024-06-01", DateKey(utc.In(loc)), "date follows the local calendar")
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2024-06-01 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", got)

	for _, bad := range []string{"", "2024-6-1", "2024-13-01", "tomorrow"} {
		_, err := ParseDate(bad)
		assert.True(t, IsValidation(err), bad)
	}
}
