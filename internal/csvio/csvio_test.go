package csvio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detailinfra/internal/vehicle"
)

func TestParse_HeaderMustMatchExactly(t *testing.T) {
	cases := map[string]string{
		"extra space":   "make, model,year_start,year_end,type_category,is_luxury,notes\nHonda,Civic,,,Compact/Sedan,false,\n",
		"missing notes": "make,model,year_start,year_end,type_category,is_luxury\nHonda,Civic,,,Compact/Sedan,false\n",
		"upper case":    "Make,model,year_start,year_end,type_category,is_luxury,notes\n",
		"empty":         "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			recs, err := Parse(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrInvalidHeader)
			assert.Empty(t, recs)
		})
	}
}

func TestParse_ToleratesCRLFAndBlankLines(t *testing.T) {
	in := HeaderLine + "\r\n" +
		"Honda,Civic,2016,2021,Compact/Sedan,yes,\r\n" +
		"\r\n" +
		"Ford,\"F-150\",,,Truck/Van/Large SUV,0,\"lifted, crew cab\"\r\n"
	recs, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].Line)
	assert.Equal(t, "lifted, crew cab", recs[1].Notes)
	assert.Equal(t, 4, recs[1].Line)
}

func TestToRow(t *testing.T) {
	row, err := Record{Make: "Honda", Model: "Civic", YearStart: "2016", YearEnd: "abc", TypeCategory: "compact / sedan", IsLuxury: "YES"}.ToRow()
	require.NoError(t, err)
	assert.Equal(t, vehicle.CompactSedan, row.Category)
	require.NotNil(t, row.YearStart)
	assert.Equal(t, 2016, *row.YearStart)
	assert.Nil(t, row.YearEnd)
	assert.True(t, row.Luxury)

	_, err = Record{Line: 3, Make: "Honda", TypeCategory: "Compact/Sedan"}.ToRow()
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "line 3: model")

	_, err = Record{Make: "Honda", Model: "Civic", TypeCategory: "Hovercraft"}.ToRow()
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", "Yes", " yes "} {
		assert.True(t, ParseBool(s), s)
	}
	for _, s := range []string{"", "false", "0", "no", "y", "on"} {
		assert.False(t, ParseBool(s), s)
	}
}

func TestWrite_RoundTripsThroughParse(t *testing.T) {
	rows := []vehicle.Row{
		{Make: "Honda", Model: "Civic", YearStart: vehicle.IntPtr(2016), YearEnd: vehicle.IntPtr(2021), Category: vehicle.CompactSedan},
		{Make: "Land rover", Model: "Defender", Category: vehicle.MidSizeSUV, Luxury: true, Notes: "long\nwheelbase, \"110\""},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), HeaderLine+"\n"))

	recs, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	got, err := recs[1].ToRow()
	require.NoError(t, err)
	assert.Equal(t, `long wheelbase, "110"`, got.Notes)
	assert.True(t, got.Luxury)
	assert.Nil(t, got.YearStart)
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))
	assert.Equal(t, HeaderLine+"\n", buf.String())
}
