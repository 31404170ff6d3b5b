// Package export serializes tracks to GPX 1.1 and JSON documents and writes
// them to an export directory.
//
// The serializers are pure: identical tracks always produce byte-identical
// output, and no export time is embedded.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/trackbook/backend/internal/domain"
)

// GPXTrackName is the fixed <name> of every exported track.
const GPXTrackName = "Trackbook Recording"

const (
	gpxTimeLayout     = "2006-01-02T15:04:05Z"
	gpxFileNameLayout = "2006-01-02-15-04-05"

	// GPXExtension is the file extension of GPX exports.
	GPXExtension = ".gpx"
)

const gpxHeader = `<?xml version="1.0" encoding="UTF-8" standalone="no" ?>
<gpx version="1.1" creator="Trackbook"
     xmlns="http://www.topografix.com/GPX/1/1"
     xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
     xsi:schemaLocation="http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd">
`

// GPX renders t as a GPX 1.1 document with one <trk> and one <trkseg>.
// Each way-point becomes a <trkpt> carrying its UTC <time> and raw <ele>.
func GPX(t domain.Track) string {
	var b strings.Builder
	b.Grow(len(gpxHeader) + 128 + len(t.WayPoints)*128)

	b.WriteString(gpxHeader)
	b.WriteString("\t<trk>\n")
	b.WriteString("\t\t<name>" + GPXTrackName + "</name>\n")
	b.WriteString("\t\t<trkseg>\n")

	for _, wp := range t.WayPoints {
		b.WriteString("\t\t\t<trkpt lat=\"")
		b.WriteString(formatNumber(wp.Latitude))
		b.WriteString("\" lon=\"")
		b.WriteString(formatNumber(wp.Longitude))
		b.WriteString("\">\n")

		b.WriteString("\t\t\t\t<time>")
		b.WriteString(wp.Time.UTC().Format(gpxTimeLayout))
		b.WriteString("</time>\n")

		b.WriteString("\t\t\t\t<ele>")
		b.WriteString(formatNumber(wp.Altitude))
		b.WriteString("</ele>\n")

		b.WriteString("\t\t\t</trkpt>\n")
	}

	b.WriteString("\t\t</trkseg>\n")
	b.WriteString("\t</trk>\n")
	b.WriteString("</gpx>\n")
	return b.String()
}

// GPXFileName returns the export file name for a track started at start:
// yyyy-MM-dd-HH-mm-ss.gpx in UTC.
func GPXFileName(start time.Time) string {
	return start.UTC().Format(gpxFileNameLayout) + GPXExtension
}

// formatNumber prints the shortest decimal that round-trips v, always with a
// decimal point (34 -> "34.0"). Exponent notation is never used, so the value
// stays a valid xsd:decimal.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
