package csw

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

type getRecords struct {
	OutputSchema  string `xml:"outputSchema,attr"`
	StartPosition int    `xml:"startPosition,attr"`
	MaxRecords    int    `xml:"maxRecords,attr"`
	Query         struct {
		TypeNames string `xml:"typeNames,attr"`
	} `xml:"Query"`
}

var dcRecords = []string{
	`<csw:Record><dc:identifier>rec-1</dc:identifier><dc:title>First</dc:title><dct:modified>2021-03-04</dct:modified></csw:Record>`,
	`<csw:Record><dc:identifier>rec/2</dc:identifier><dc:title>Second</dc:title><dc:date>2020-01-02T10:00:00Z</dc:date></csw:Record>`,
	`<csw:Record><dc:identifier>rec-3</dc:identifier><dc:title>Third</dc:title></csw:Record>`,
}

func dcPage(start, max int) string {
	end := min(start-1+max, len(dcRecords))
	next := end + 1
	if end >= len(dcRecords) {
		next = 0
	}
	return fmt.Sprintf(`<?xml version="1.0"?>
<csw:GetRecordsResponse xmlns:csw="%s" xmlns:dc="%s" xmlns:dct="%s">
  <csw:SearchStatus timestamp="2024-01-01T00:00:00Z"/>
  <csw:SearchResults numberOfRecordsMatched="%d" numberOfRecordsReturned="%d" nextRecord="%d" elementSet="full">
    %s
  </csw:SearchResults>
</csw:GetRecordsResponse>`, nsCSW, nsDC, nsDCT, len(dcRecords), end-start+1, next,
		strings.Join(dcRecords[start-1:end], "\n    "))
}

type catalog struct {
	mu       sync.Mutex
	requests []getRecords
}

func newCatalog(t *testing.T, respond func(req getRecords) string) (*httptest.Server, *catalog) {
	t.Helper()
	c := &catalog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req getRecords
		if err := xml.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.requests = append(c.requests, req)
		c.mu.Unlock()
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, respond(req))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newTestBroker(t *testing.T, props map[string]string) *broker {
	t.Helper()
	if _, ok := props[PropRate]; !ok {
		props[PropRate] = "1000"
	}
	b, err := NewConnector().CreateBroker(domain.NewEntityDefinition(Type, "csw", props))
	require.NoError(t, err)
	cb := b.(*broker)
	cb.client.delay = time.Millisecond
	return cb
}

func drain(t *testing.T, b *broker) []domain.DataReference {
	t.Helper()
	ctx := context.Background()
	var refs []domain.DataReference
	for {
		more, err := b.HasNext(ctx)
		require.NoError(t, err)
		if !more {
			return refs
		}
		ref, err := b.Next(ctx)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		props   map[string]string
		wantErr bool
	}{
		{"valid", map[string]string{PropHostURL: "https://cat.example/csw"}, false},
		{"iso profile", map[string]string{PropHostURL: "https://cat.example/csw", PropProfile: "urn:ogc:CSW:2.0.2:HTTP:APISO"}, false},
		{"missing url", map[string]string{}, true},
		{"relative url", map[string]string{PropHostURL: "/csw"}, true},
		{"ftp url", map[string]string{PropHostURL: "ftp://cat.example/csw"}, true},
		{"unknown profile", map[string]string{PropHostURL: "https://cat.example/csw", PropProfile: "urn:nope"}, true},
		{"zero page size", map[string]string{PropHostURL: "https://cat.example/csw", PropPageSize: "0"}, true},
		{"huge page size", map[string]string{PropHostURL: "https://cat.example/csw", PropPageSize: "5000"}, true},
		{"bad rate", map[string]string{PropHostURL: "https://cat.example/csw", PropRate: "-1"}, true},
		{"password without user", map[string]string{PropHostURL: "https://cat.example/csw", PropPassword: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConnector().Validate(domain.NewEntityDefinition(Type, "csw", tt.props))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
				return
			}
			require.NoError(t, err)
		})
	}

	cfg, err := ParseConfig(domain.NewEntityDefinition(Type, "csw", map[string]string{PropHostURL: "https://cat.example/csw"}))
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, cfg.Profile.ID)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
}

func TestProfileIDs(t *testing.T) {
	ids := ProfileIDs()
	assert.Len(t, ids, 6)
	assert.Contains(t, ids, DefaultProfile)
	assert.Contains(t, ids, "urn:ogc:CSW:2.0.2:HTTP:APISO:GeoNetwork")

	p, ok := ProfileByID("urn:ogc:CSW:2.0.2:HTTP:APISO")
	require.True(t, ok)
	assert.Equal(t, nsGMD, p.OutputSchema)
	_, ok = ProfileByID("urn:nope")
	assert.False(t, ok)
}

func TestBroker_PagesDublinCore(t *testing.T) {
	srv, cat := newCatalog(t, func(req getRecords) string {
		return dcPage(req.StartPosition, req.MaxRecords)
	})
	b := newTestBroker(t, map[string]string{PropHostURL: srv.URL + "/csw", PropPageSize: "2"})

	refs := drain(t, b)
	require.Len(t, refs, 3)

	require.Len(t, cat.requests, 2)
	assert.Equal(t, 1, cat.requests[0].StartPosition)
	assert.Equal(t, 3, cat.requests[1].StartPosition)
	assert.Equal(t, 2, cat.requests[0].MaxRecords)
	assert.Equal(t, nsCSW, cat.requests[0].OutputSchema)
	assert.Equal(t, "csw:Record", cat.requests[0].Query.TypeNames)

	first := refs[0]
	assert.Equal(t, "rec-1", first.ID())
	assert.Equal(t, "application/xml", first.ContentType())
	assert.Equal(t, b.String(), first.SourceBrokerID())
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), first.LastModified())
	title, _ := first.Attribute("title")
	assert.Equal(t, "First", title)
	path, _ := first.Attribute("path")
	assert.Equal(t, "rec-1.xml", path)
	profile, _ := first.Attribute("profile")
	assert.Equal(t, DefaultProfile, profile)

	u, err := url.Parse(first.SourceURI())
	require.NoError(t, err)
	assert.Equal(t, "GetRecordById", u.Query().Get("request"))
	assert.Equal(t, "rec-1", u.Query().Get("id"))

	t.Run("record content declares inherited namespaces", func(t *testing.T) {
		content := string(first.Content())
		assert.True(t, strings.HasPrefix(content, "<csw:Record "))
		assert.Contains(t, content, `xmlns:dc="`+nsDC+`"`)

		var rec struct {
			Identifier string `xml:"http://purl.org/dc/elements/1.1/ identifier"`
		}
		require.NoError(t, xml.Unmarshal(first.Content(), &rec))
		assert.Equal(t, "rec-1", rec.Identifier)
	})

	t.Run("fallback date and unsafe identifier", func(t *testing.T) {
		second := refs[1]
		assert.Equal(t, 2020, second.LastModified().Year())
		path, _ := second.Attribute("path")
		assert.Equal(t, "rec_2.xml", path)
		assert.True(t, refs[2].LastModified().IsZero())
	})
}

const isoPage = `<?xml version="1.0"?>
<csw:GetRecordsResponse xmlns:csw="http://www.opengis.net/cat/csw/2.0.2">
  <csw:SearchResults numberOfRecordsMatched="2" numberOfRecordsReturned="2" nextRecord="0">
    <gmd:MD_Metadata xmlns:gmd="http://www.isotc211.org/2005/gmd" xmlns:gco="http://www.isotc211.org/2005/gco">
      <gmd:fileIdentifier><gco:CharacterString>iso-1</gco:CharacterString></gmd:fileIdentifier>
      <gmd:dateStamp><gco:DateTime>2019-05-06T07:08:09</gco:DateTime></gmd:dateStamp>
      <gmd:identificationInfo><gmd:MD_DataIdentification><gmd:citation><gmd:CI_Citation>
        <gmd:title><gco:CharacterString>Rivers</gco:CharacterString></gmd:title>
      </gmd:CI_Citation></gmd:citation></gmd:MD_DataIdentification></gmd:identificationInfo>
    </gmd:MD_Metadata>
    <gmd:MD_Metadata xmlns:gmd="http://www.isotc211.org/2005/gmd">
      <gmd:language>eng</gmd:language>
    </gmd:MD_Metadata>
  </csw:SearchResults>
</csw:GetRecordsResponse>`

func TestBroker_ISOProfile(t *testing.T) {
	srv, cat := newCatalog(t, func(getRecords) string { return isoPage })
	b := newTestBroker(t, map[string]string{
		PropHostURL: srv.URL + "/csw",
		PropProfile: "urn:ogc:CSW:2.0.2:HTTP:APISO",
	})

	refs := drain(t, b)
	require.Len(t, refs, 1, "the record without identifier is skipped")
	assert.Equal(t, "iso-1", refs[0].ID())
	title, _ := refs[0].Attribute("title")
	assert.Equal(t, "Rivers", title)
	assert.Equal(t, time.Date(2019, 5, 6, 7, 8, 9, 0, time.UTC), refs[0].LastModified())

	require.Len(t, cat.requests, 1)
	assert.Equal(t, nsGMD, cat.requests[0].OutputSchema)
	assert.Equal(t, "gmd:MD_Metadata", cat.requests[0].Query.TypeNames)
}

func TestBroker_StopsWhenServerDoesNotAdvance(t *testing.T) {
	srv, cat := newCatalog(t, func(getRecords) string {
		return fmt.Sprintf(`<csw:GetRecordsResponse xmlns:csw="%s" xmlns:dc="%s">
<csw:SearchResults numberOfRecordsMatched="10" numberOfRecordsReturned="1" nextRecord="1">
<csw:Record><dc:identifier>same</dc:identifier></csw:Record>
</csw:SearchResults></csw:GetRecordsResponse>`, nsCSW, nsDC)
	})
	b := newTestBroker(t, map[string]string{PropHostURL: srv.URL + "/csw"})

	refs := drain(t, b)
	assert.Len(t, refs, 1)
	assert.Len(t, cat.requests, 1)
}

func TestBroker_ExceptionReport(t *testing.T) {
	srv, _ := newCatalog(t, func(getRecords) string {
		return `<?xml version="1.0"?>
<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows" version="1.2.0">
  <ows:Exception exceptionCode="InvalidParameterValue" locator="outputSchema">
    <ows:ExceptionText>Unsupported output schema</ows:ExceptionText>
  </ows:Exception>
</ows:ExceptionReport>`
	})
	b := newTestBroker(t, map[string]string{PropHostURL: srv.URL + "/csw"})

	_, err := b.HasNext(context.Background())
	var exc *ExceptionError
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, "InvalidParameterValue", exc.Code)
	assert.Equal(t, "Unsupported output schema", exc.Text)
}

func TestBroker_ResponseWithoutResults(t *testing.T) {
	srv, _ := newCatalog(t, func(getRecords) string { return `<html><body>maintenance</body></html>` })
	b := newTestBroker(t, map[string]string{PropHostURL: srv.URL + "/csw"})

	_, err := b.HasNext(context.Background())
	assert.ErrorIs(t, err, errNoResults)
}

func TestBroker_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "harvest" || pass != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, dcPage(1, 10))
	}))
	t.Cleanup(srv.Close)

	b := newTestBroker(t, map[string]string{
		PropHostURL:  srv.URL + "/csw",
		PropUsername: "harvest",
		PropPassword: "s3cret",
	})
	assert.Len(t, drain(t, b), 3)

	anonymous := newTestBroker(t, map[string]string{PropHostURL: srv.URL + "/csw"})
	_, err := anonymous.HasNext(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestBroker_NextWhenEmpty(t *testing.T) {
	b := newTestBroker(t, map[string]string{PropHostURL: "http://127.0.0.1:1/csw"})
	_, err := b.Next(context.Background())
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}
