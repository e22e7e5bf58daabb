package pipeline_test

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const stationMember2020 = "INMET_SE_SP_A740_SAO LUIZ DO PARAITINGA_01-01-2020_A_31-12-2020.CSV"
const stationMember2021 = "INMET_SE_SP_A740_SAO LUIZ DO PARAITINGA_01-01-2021_A_31-12-2021.CSV"
const otherStationMember = "INMET_SE_SP_A701_SAO PAULO_01-01-2020_A_31-12-2020.CSV"

// buildArchive assembles an in-memory ZIP from member name → CSV bytes pairs.
func buildArchive(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// portalFixture is a fake INMET portal: an index page plus year routes that
// serve either a ZIP directly or an HTML listing linking to one.
type portalFixture struct {
	srv *httptest.Server

	index    string
	listings map[string]string // path → listing HTML
	archives map[string][]byte // path → zip bytes
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()
	f := &portalFixture{
		listings: make(map[string]string),
		archives: make(map[string][]byte),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/index":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, f.index)
		case f.listings[r.URL.Path] != "":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, f.listings[r.URL.Path])
		case f.archives[r.URL.Path] != nil:
			w.Header().Set("Content-Type", "application/zip")
			w.Write(f.archives[r.URL.Path])
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *portalFixture) url() string { return f.srv.URL }
