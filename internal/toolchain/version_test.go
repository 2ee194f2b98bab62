package toolchain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag(t *testing.T) {
	cases := []struct {
		banner string
		want   string
	}{
		{"toolname 1.10.0-nightly (57ef01513 2016-05-23)", "20160523-toolname-57ef01513"},
		{"othertool 0.2.0 (ba9ae23 2016-05-26)", "20160526-othertool-ba9ae23"},
		{"rustc 1.10.0-nightly (57ef01513 2016-05-23)", "20160523-rustc-57ef01513"},
		{"  cargo 1.50.0 (f04e7fab7 2020-12-23)\n", "20201223-cargo-f04e7fab7"},
	}
	for _, c := range cases {
		t.Run(c.banner, func(t *testing.T) {
			got, err := Tag(c.banner)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseFields(t *testing.T) {
	v, err := Parse("rustc 1.10.0-nightly (57ef01513 2016-05-23)")
	require.NoError(t, err)
	assert.Equal(t, Version{
		Name:    "rustc",
		Release: "1.10.0-nightly",
		Commit:  "57ef01513",
		Year:    "2016",
		Month:   "05",
		Day:     "23",
	}, v)
	assert.Equal(t, "2016-05-23", v.Date())
}

func TestParseRejects(t *testing.T) {
	bad := []string{
		"",
		"rustc",
		"rustc 1.10.0-nightly",
		"rustc 1.10.0-nightly 57ef01513 2016-05-23",
		"rustc 1.10.0-nightly (57ef01513)",
		"rustc 1.10.0-nightly (57ef01513 2016-5-23)",
		"rustc 1.10.0-nightly (57ef01513 2016-05-23",
		"rustc 1.10.0-nightly (57ef01513 16-05-23)",
		"rustc 1.10.0-nightly (57ef-01513 2016-05-23)",
		"rustc 1.10.0-nightly (57ef01513 2016-05-23) trailing",
		"(57ef01513 2016-05-23)",
	}
	for _, banner := range bad {
		t.Run(banner, func(t *testing.T) {
			_, err := Parse(banner)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedVersion)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, banner, pe.Input)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("rustc 1.0 (abc 2016-05-2x)")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "day", pe.Expected)
	assert.Equal(t, 23, pe.Offset)
}
