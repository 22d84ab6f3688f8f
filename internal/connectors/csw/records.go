package csw

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// getRecordsRequest renders a GetRecords POST body for one page.
func getRecordsRequest(p *Profile, start, max int) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<csw:GetRecords xmlns:csw=%q xmlns:gmd=%q service="CSW" version="2.0.2"`, nsCSW, nsGMD)
	fmt.Fprintf(&b, ` resultType="results" outputSchema=%q startPosition="%d" maxRecords="%d">`, p.OutputSchema, start, max)
	fmt.Fprintf(&b, `<csw:Query typeNames=%q><csw:ElementSetName>full</csw:ElementSetName></csw:Query>`, p.TypeNames)
	b.WriteString(`</csw:GetRecords>`)
	return b.Bytes()
}

// page is one parsed GetRecords response.
type page struct {
	matched  int
	returned int
	next     int
	records  []record
}

type record struct {
	id       string
	title    string
	modified time.Time
	content  []byte
}

// ExceptionError is an OWS exception report returned by the service.
type ExceptionError struct {
	Code string
	Text string
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("csw: service exception %s: %s", e.Code, e.Text)
}

var errNoResults = errors.New("csw: response has no SearchResults")

type nsDecl struct {
	name  string
	value string
}

// parsePage reads a GetRecords response. Records lacking an identifier are
// returned with an empty id.
func parsePage(body []byte, p *Profile) (*page, error) {
	d := xml.NewDecoder(bytes.NewReader(body))
	var (
		scopes    [][]nsDecl
		inResults bool
		found     bool
		pg        page
	)
	for {
		offset := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csw: parse response: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(scopes) == 0 && t.Name.Space == nsOWS && t.Name.Local == "ExceptionReport" {
				return nil, decodeException(d, &t)
			}
			if inResults {
				if err := d.Skip(); err != nil {
					return nil, fmt.Errorf("csw: parse record: %w", err)
				}
				content := standalone(body[offset:d.InputOffset()], t, scopes)
				pg.records = append(pg.records, p.read(content))
				continue
			}
			scopes = append(scopes, namespaces(t.Attr))
			if t.Name.Space == nsCSW && t.Name.Local == "SearchResults" {
				inResults, found = true, true
				pg.matched = intAttr(t, "numberOfRecordsMatched")
				pg.returned = intAttr(t, "numberOfRecordsReturned")
				pg.next = intAttr(t, "nextRecord")
			}
		case xml.EndElement:
			if t.Name.Space == nsCSW && t.Name.Local == "SearchResults" {
				inResults = false
			}
			if len(scopes) > 0 {
				scopes = scopes[:len(scopes)-1]
			}
		}
	}
	if !found {
		return nil, errNoResults
	}
	if pg.returned == 0 {
		pg.returned = len(pg.records)
	}
	return &pg, nil
}

func decodeException(d *xml.Decoder, start *xml.StartElement) error {
	var report struct {
		Exceptions []struct {
			Code string   `xml:"exceptionCode,attr"`
			Text []string `xml:"ExceptionText"`
		} `xml:"Exception"`
	}
	if err := d.DecodeElement(&report, start); err != nil {
		return fmt.Errorf("csw: parse exception report: %w", err)
	}
	if len(report.Exceptions) == 0 {
		return &ExceptionError{Code: "unknown"}
	}
	e := report.Exceptions[0]
	return &ExceptionError{Code: e.Code, Text: strings.TrimSpace(strings.Join(e.Text, " "))}
}

func intAttr(el xml.StartElement, name string) int {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			n, _ := strconv.Atoi(strings.TrimSpace(a.Value))
			return n
		}
	}
	return 0
}

// namespaces returns the namespace declarations among attrs.
func namespaces(attrs []xml.Attr) []nsDecl {
	var decls []nsDecl
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			decls = append(decls, nsDecl{name: "xmlns:" + a.Name.Local, value: a.Value})
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			decls = append(decls, nsDecl{name: "xmlns", value: a.Value})
		}
	}
	return decls
}

// standalone copies the namespace declarations in scope onto the root
// element of raw, skipping those the element declares itself.
func standalone(raw []byte, el xml.StartElement, scopes [][]nsDecl) []byte {
	own := map[string]bool{}
	for _, d := range namespaces(el.Attr) {
		own[d.name] = true
	}
	inherited := map[string]string{}
	var order []string
	for _, scope := range scopes {
		for _, d := range scope {
			if own[d.name] {
				continue
			}
			if _, seen := inherited[d.name]; !seen {
				order = append(order, d.name)
			}
			inherited[d.name] = d.value
		}
	}
	if len(order) == 0 {
		return bytes.Clone(raw)
	}

	nameEnd := bytes.IndexAny(raw, " \t\r\n/>")
	if nameEnd < 0 {
		return bytes.Clone(raw)
	}
	var b bytes.Buffer
	b.Write(raw[:nameEnd])
	for _, name := range order {
		b.WriteString(" " + name + `="`)
		_ = xml.EscapeText(&b, []byte(inherited[name]))
		b.WriteString(`"`)
	}
	b.Write(raw[nameEnd:])
	return b.Bytes()
}

// read extracts the profile fields of one standalone record.
func (p *Profile) read(content []byte) record {
	r := record{
		id:      firstText(content, p.idPath),
		title:   firstText(content, p.titlePath),
		content: content,
	}
	for _, path := range p.modifiedPath {
		if t, ok := parseDate(firstText(content, path)); ok {
			r.modified = t
			break
		}
	}
	return r
}

// firstText returns the trimmed text of the first element whose ancestry
// ends with path.
func firstText(content []byte, path []xml.Name) string {
	d := xml.NewDecoder(bytes.NewReader(content))
	var stack []xml.Name
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if hasSuffix(stack, path) {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s
				}
			}
		}
	}
}

func hasSuffix(stack, path []xml.Name) bool {
	if len(path) == 0 || len(stack) < len(path) {
		return false
	}
	tail := stack[len(stack)-len(path):]
	for i := range path {
		if tail[i] != path[i] {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
