package typeoption

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckboxReaderAcceptsTrueStrings(t *testing.T) {
	r := CellReader(Checkbox)
	assert.Equal(t, true, r(nil, "yes"))
	assert.Equal(t, true, r(nil, "1"))
	assert.Equal(t, true, r(nil, "TRUE"))
	assert.Equal(t, true, r(nil, true))
	assert.Equal(t, false, r(nil, "no"))
	assert.Equal(t, false, r(nil, "garbage"))
	assert.Equal(t, false, r(nil, nil))
}

func TestNumberReaderDefaultsOnUnparsable(t *testing.T) {
	r := CellReader(Number)
	assert.Equal(t, 42.0, r(nil, 42.0))
	assert.Equal(t, 7.0, r(nil, "7"))
	assert.Equal(t, 0.0, r(nil, "not-a-number"))
	assert.Equal(t, 0.0, r(nil, nil))
}

func TestDateTimeReaderAcceptsUnixSecondsAndStrings(t *testing.T) {
	r := CellReader(DateTime)
	assert.Equal(t, int64(1700000000), r(nil, float64(1700000000)))
	assert.Equal(t, int64(1700000000), r(nil, "1700000000"))
	assert.Equal(t, int64(0), r(nil, "garbage"))
	assert.Equal(t, int64(0), r(nil, ""))

	got := r(nil, "2023-01-02")
	assert.NotEqual(t, int64(0), got)
}

func TestSelectReaderNormalizesSingleAndMulti(t *testing.T) {
	r := CellReader(Select)
	assert.Equal(t, []string{"opt-1"}, r(nil, "opt-1"))
	assert.Equal(t, []string{"opt-1", "opt-2"}, r(nil, []any{"opt-1", "opt-2"}))
	assert.Equal(t, []string{}, r(nil, nil))
}

func TestChecklistRoundTrip(t *testing.T) {
	w := CellWriter(Checklist)
	raw := w(nil, []ChecklistItem{{Name: "step 1", Checked: true}, {Name: "step 2"}})

	r := CellReader(Checklist)
	items := r(nil, raw).([]ChecklistItem)
	assert.Len(t, items, 2)
	assert.True(t, items[0].Checked)
	assert.False(t, items[1].Checked)
}

func TestUnknownTagDefaultsToRichText(t *testing.T) {
	r := CellReader(Tag(99))
	assert.Equal(t, "hello", r(nil, "hello"))
}
