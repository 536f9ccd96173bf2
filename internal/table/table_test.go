package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string   `csv:"name"`
	Count int      `csv:"count"`
	Score *float64 `csv:"score"`
	Games *int     `csv:"games"`
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "rows.csv")
	score := 1.5
	in := []row{
		{Name: "a", Count: 1, Score: &score},
		{Name: "b", Count: 0},
	}
	require.NoError(t, Write(path, in))

	out, err := Read[row](path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Name)
	require.NotNil(t, out[0].Score)
	assert.InDelta(t, 1.5, *out[0].Score, 1e-9)
	assert.Nil(t, out[1].Score)
	assert.Equal(t, 0, out[1].Count)
}

func TestWriteEmptyKeepsHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, Write[row](path, nil))

	header, err := Header(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "count", "score", "games"}, header)

	out, err := Read[row](path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Read[row](filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)

	rows, ok, err := ReadIfExists[row](filepath.Join(t.TempDir(), "nope.csv"))
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rows)
}

func TestDecodeNormalizesForeignCells(t *testing.T) {
	t.Parallel()

	in := "name,count,score,games,extra\na,2.0,nan,3.0,x\nb,,,,y\n"
	out, err := Decode[row](strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 2, out[0].Count)
	assert.Nil(t, out[0].Score)
	require.NotNil(t, out[0].Games)
	assert.Equal(t, 3, *out[0].Games)

	assert.Equal(t, 0, out[1].Count)
	assert.Nil(t, out[1].Games)
}

func TestDecodeNaNInEveryColumnKind(t *testing.T) {
	t.Parallel()

	in := "name,count,score,games\nc,NaN,NaN, nan \n"
	out, err := Decode[row](strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].Name)
	assert.Equal(t, 0, out[0].Count)
	assert.Nil(t, out[0].Score)
	assert.Nil(t, out[0].Games)
}

func TestDecodeEmptyStream(t *testing.T) {
	t.Parallel()

	out, err := Decode[row](strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRequireColumns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cols.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,yrfi_odds\n"), 0o644))

	assert.NoError(t, RequireColumns(path, "yrfi_odds"))

	err := RequireColumns(path, "yrfi_odds", "implied_prob")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "implied_prob")
}
