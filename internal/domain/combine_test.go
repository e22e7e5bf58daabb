package domain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) Timestamp {
	return Timestamp{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func TestCombine(t *testing.T) {
	t.Run("sorts drops nulls and dedups", func(t *testing.T) {
		tables := [][]Record{
			{
				{Data: day(2020, 1, 2), TemperaturaMedia: num(25)},
				{Data: Timestamp{}, TemperaturaMedia: num(99)}, // null timestamp
			},
			{
				{Data: day(2020, 1, 1), TemperaturaMedia: num(20)},
				{Data: day(2020, 1, 2), TemperaturaMedia: num(30)}, // duplicate day
				{Data: day(2020, 1, 3), TemperaturaMedia: num(22)},
			},
		}

		combined := Combine(tables)
		require.Len(t, combined, 3)
		assert.Equal(t, day(2020, 1, 1), combined[0].Data)
		assert.Equal(t, day(2020, 1, 2), combined[1].Data)
		assert.Equal(t, day(2020, 1, 3), combined[2].Data)
		// First occurrence in stable-sorted order wins: table 0 came first.
		assertValue(t, 25.0, combined[1].TemperaturaMedia)
	})

	t.Run("idempotent", func(t *testing.T) {
		tables := [][]Record{
			{{Data: day(2021, 5, 2)}, {Data: day(2021, 5, 1)}},
			{{Data: day(2021, 5, 1), Precipitacao: num(3)}},
		}
		first := Combine(tables)
		second := Combine(tables)
		assert.Equal(t, first, second)

		recombined := Combine([][]Record{first})
		assert.Equal(t, first, recombined)
	})

	t.Run("strictly increasing timestamps", func(t *testing.T) {
		tables := [][]Record{{
			{Data: day(2020, 3, 1)}, {Data: day(2020, 3, 1)}, {Data: day(2020, 2, 1)},
		}}
		combined := Combine(tables)
		for i := 1; i < len(combined); i++ {
			assert.True(t, combined[i-1].Data.Before(combined[i].Data.Time))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Combine(nil))
		assert.Empty(t, Combine([][]Record{{}}))
	})
}

func TestWriteCombined(t *testing.T) {
	t.Run("writes canonical header and creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "combined.csv")
		records := []Record{
			{Data: day(2020, 1, 1), TemperaturaMedia: num(24.5), UmidadeRelativa: num(80)},
			{Data: Timestamp{Time: time.Date(2020, 1, 2, 13, 0, 0, 0, time.UTC)}},
		}

		require.NoError(t, WriteCombined(records, path))

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t,
			"DATA,TEMPERATURA_MEDIA,TEMPERATURA_MAXIMA,TEMPERATURA_MINIMA,UMIDADE_RELATIVA,PRECIPITACAO,VELOCIDADE_VENTO,PRESSAO_ATMOSFERICA",
			lines[0])
		assert.Equal(t, "2020-01-01,24.5,,,80,,,", lines[1])
		assert.Equal(t, "2020-01-02 13:00:00,,,,,,,", lines[2])
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "combined.csv")
		records := []Record{{Data: day(2019, 7, 1), Precipitacao: num(12.5)}}
		require.NoError(t, WriteCombined(records, path))

		back, readErr := ReadCombined(path)
		require.NoError(t, readErr)
		require.Len(t, back, 1)
		assert.Equal(t, records[0].Data, back[0].Data)
		assertValue(t, 12.5, back[0].Precipitacao)
		// Empty cells must read back as null, not as a zero reading.
		assert.True(t, back[0].TemperaturaMedia.IsNull())
	})

	t.Run("empty dataset writes nothing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "combined.csv")
		assert.ErrorIs(t, WriteCombined(nil, path), ErrNoData)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})
}
