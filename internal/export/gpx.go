package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"backend-esterun/internal/tracking"
)

const gpxCreator = "esterun"

type gpxFile struct {
	XMLName  xml.Name    `xml:"gpx"`
	Version  string      `xml:"version,attr"`
	Creator  string      `xml:"creator,attr"`
	Xmlns    string      `xml:"xmlns,attr"`
	Metadata gpxMetadata `xml:"metadata"`
	Tracks   []gpxTrack  `xml:"trk"`
}

type gpxMetadata struct {
	Name string    `xml:"name,omitempty"`
	Time time.Time `xml:"time"`
}

type gpxTrack struct {
	Name     string       `xml:"name,omitempty"`
	Type     string       `xml:"type,omitempty"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  float64    `xml:"lat,attr"`
	Lon  float64    `xml:"lon,attr"`
	Time *time.Time `xml:"time,omitempty"`
}

// GPX renders the activity as a single-track GPX 1.1 document.
func GPX(rec tracking.ActivityRecord) ([]byte, error) {
	times := timeline(rec)
	seg := gpxSegment{Points: make([]gpxPoint, len(rec.Route))}
	for i, p := range rec.Route {
		ts := times[i].UTC()
		seg.Points[i] = gpxPoint{Lat: p.Lat, Lon: p.Lng, Time: &ts}
	}

	doc := gpxFile{
		Version:  "1.1",
		Creator:  gpxCreator,
		Xmlns:    "http://www.topografix.com/GPX/1/1",
		Metadata: gpxMetadata{Name: rec.Title, Time: rec.StartTime.UTC()},
		Tracks: []gpxTrack{{
			Name:     rec.Title,
			Type:     string(rec.Kind),
			Segments: []gpxSegment{seg},
		}},
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode gpx: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// TrackPoint is one point read back from a GPX track. Time is zero when the
// file carries none.
type TrackPoint struct {
	Lat  float64
	Lng  float64
	Time time.Time
}

// ReadGPX returns every track point of a GPX document in file order.
func ReadGPX(r io.Reader) ([]TrackPoint, error) {
	var doc gpxFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode gpx: %w", err)
	}
	var out []TrackPoint
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				tp := TrackPoint{Lat: p.Lat, Lng: p.Lon}
				if p.Time != nil {
					tp.Time = *p.Time
				}
				out = append(out, tp)
			}
		}
	}
	return out, nil
}
