package csw

import (
	"encoding/xml"
	"sort"
)

// XML namespaces used by the supported profiles.
const (
	nsCSW = "http://www.opengis.net/cat/csw/2.0.2"
	nsDC  = "http://purl.org/dc/elements/1.1/"
	nsDCT = "http://purl.org/dc/terms/"
	nsGMD = "http://www.isotc211.org/2005/gmd"
	nsGCO = "http://www.isotc211.org/2005/gco"
	nsOWS = "http://www.opengis.net/ows"
)

// Profile describes how to query one kind of catalog and read its records.
type Profile struct {
	ID           string
	Name         string
	OutputSchema string
	TypeNames    string

	// Element paths, matched as a suffix of the element stack.
	idPath       []xml.Name
	titlePath    []xml.Name
	modifiedPath [][]xml.Name
}

var dublinCore = Profile{
	OutputSchema: nsCSW,
	TypeNames:    "csw:Record",
	idPath:       []xml.Name{{Space: nsDC, Local: "identifier"}},
	titlePath:    []xml.Name{{Space: nsDC, Local: "title"}},
	modifiedPath: [][]xml.Name{
		{{Space: nsDCT, Local: "modified"}},
		{{Space: nsDC, Local: "date"}},
	},
}

var iso19139 = Profile{
	OutputSchema: nsGMD,
	TypeNames:    "gmd:MD_Metadata",
	idPath:       []xml.Name{{Space: nsGMD, Local: "fileIdentifier"}, {Space: nsGCO, Local: "CharacterString"}},
	titlePath: []xml.Name{
		{Space: nsGMD, Local: "CI_Citation"},
		{Space: nsGMD, Local: "title"},
		{Space: nsGCO, Local: "CharacterString"},
	},
	modifiedPath: [][]xml.Name{
		{{Space: nsGMD, Local: "dateStamp"}, {Space: nsGCO, Local: "DateTime"}},
		{{Space: nsGMD, Local: "dateStamp"}, {Space: nsGCO, Local: "Date"}},
	},
}

func profile(base Profile, id, name string) *Profile {
	p := base
	p.ID = id
	p.Name = name
	return &p
}

// DefaultProfile is used when csw.profile.id is not set.
const DefaultProfile = "urn:ogc:CSW:2.0.2:HTTP:OGCCORE"

var profiles = map[string]*Profile{}

func init() {
	for _, p := range []*Profile{
		profile(dublinCore, DefaultProfile, "OGC Core (Dublin Core)"),
		profile(dublinCore, "urn:ogc:CSW:2.0.2:HTTP:OGCCORE:ESRI:GPT", "Esri Geoportal (Dublin Core)"),
		profile(dublinCore, "urn:ogc:CSW:2.0.2:HTTP:OGCCORE:GeoNetwork", "GeoNetwork (Dublin Core)"),
		profile(iso19139, "urn:ogc:CSW:2.0.2:HTTP:APISO", "ISO Application Profile (ISO 19139)"),
		profile(iso19139, "urn:ogc:CSW:2.0.2:HTTP:APISO:ESRI:GPT", "Esri Geoportal (ISO 19139)"),
		profile(iso19139, "urn:ogc:CSW:2.0.2:HTTP:APISO:GeoNetwork", "GeoNetwork (ISO 19139)"),
	} {
		profiles[p.ID] = p
	}
}

// ProfileByID returns the profile with id.
func ProfileByID(id string) (*Profile, bool) {
	p, ok := profiles[id]
	return p, ok
}

// ProfileIDs returns the known profile ids, sorted.
func ProfileIDs() []string {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
