package gpx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sensors extracts heart rate, cadence, temperature and speed from the
// point's extension block.
func (p *Point) Sensors() (Sensors, error) {
	var s Sensors
	values, err := sensorText(p.Extensions)
	if err != nil {
		return s, err
	}
	for name, dst := range map[string]**float64{
		"hr":    &s.HeartRate,
		"cad":   &s.Cadence,
		"atemp": &s.Temperature,
		"speed": &s.Speed,
	} {
		text, ok := values[name]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return s, fmt.Errorf("invalid %s value %q: %w", name, text, err)
		}
		*dst = &v
	}
	return s, nil
}

// sensorText collects the text of the sensor elements in an extension
// block. Elements are matched by local name, so any namespace prefix
// (gpxtpx, ns3, none) is accepted.
func sensorText(raw RawXML) (map[string]string, error) {
	values := make(map[string]string)
	if len(raw) == 0 {
		return values, nil
	}

	// The fragment may have several roots; wrap it so it is a document.
	doc := make([]byte, 0, len(raw)+7)
	doc = append(doc, "<x>"...)
	doc = append(doc, raw...)
	doc = append(doc, "</x>"...)

	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false

	var current string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return values, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse extensions: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
		case xml.EndElement:
			current = ""
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch current {
			case "hr", "cad", "atemp", "speed":
				values[current] = text
			}
		}
	}
}

// Encode renders the readings as a gpxtpx:TrackPointExtension block, or nil
// when nothing was recorded. Element order follows the v1 schema, which has
// no speed element.
func (s Sensors) Encode() RawXML {
	if s.HeartRate == nil && s.Cadence == nil && s.Temperature == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString("<gpxtpx:TrackPointExtension>")
	writeElement(&b, "atemp", s.Temperature, 1)
	writeElement(&b, "hr", s.HeartRate, 0)
	writeElement(&b, "cad", s.Cadence, 0)
	b.WriteString("</gpxtpx:TrackPointExtension>")
	return RawXML(b.String())
}

func writeElement(b *strings.Builder, name string, v *float64, prec int) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "<gpxtpx:%s>%s</gpxtpx:%s>", name, strconv.FormatFloat(*v, 'f', prec, 64), name)
}
