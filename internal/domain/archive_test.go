package domain

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, members map[string][]byte, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(members[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestCSVMembers(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"readme.txt":    []byte("not a csv"),
		"STATION_A.CSV": []byte("a;b\n1;2\n"),
		"station_b.csv": []byte("c;d\n3;4\n"),
	}, []string{"readme.txt", "STATION_A.CSV", "station_b.csv"})

	seq, err := CSVMembers(data)
	require.NoError(t, err)

	var names []string
	for member, memberErr := range seq {
		require.NoError(t, memberErr)
		names = append(names, member.Name)
		assert.NotEmpty(t, member.Data)
	}
	// Only CSV members, in archive order, extension match case-insensitive.
	assert.Equal(t, []string{"STATION_A.CSV", "station_b.csv"}, names)
}

func TestCSVMembers_BadArchive(t *testing.T) {
	_, err := CSVMembers([]byte("definitely not a zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open archive")
}

func TestCSVMembers_EarlyStop(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"a.csv": []byte("x\n"),
		"b.csv": []byte("y\n"),
	}, []string{"a.csv", "b.csv"})

	seq, err := CSVMembers(data)
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
