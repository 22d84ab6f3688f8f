// Package csw implements the CSW (OGC Catalogue Service for the Web) input
// connector.
//
// The broker pages through a CSW 2.0.2 endpoint with GetRecords POST
// requests and yields one record per catalog entry. The csw.profile.id
// property selects a profile from a fixed set; the profile decides the
// requested output schema and where the identifier, title and modification
// date are read from each record.
//
// Each record is delivered as a standalone XML document: namespace
// declarations inherited from the response envelope are copied onto the
// record element.
package csw
