package xsq

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/cartomix/twinklr/internal/corerr"
)

// Document is the XSQ root element (§4.5's closed output shape).
type Document struct {
	XMLName         xml.Name        `xml:"xsequence"`
	Head            Head            `xml:"head"`
	EffectDB        EffectDBXML     `xml:"EffectDB"`
	DisplayElements DisplayElements `xml:"DisplayElements"`
	ElementEffects  ElementEffects  `xml:"ElementEffects"`
}

type Head struct {
	Version          string `xml:"version,attr"`
	MediaFile        string `xml:"MediaFile"`
	SequenceDuration string `xml:"sequenceDuration"`
	Song             string `xml:"song,omitempty"`
	Artist           string `xml:"artist,omitempty"`
}

type EffectDBXML struct {
	Effects []string `xml:"Effect"`
}

type DisplayElements struct {
	Elements []DisplayElement `xml:"Element"`
}

type DisplayElement struct {
	Type string `xml:"type,attr"`
	Name string `xml:"name,attr"`
}

type ElementEffects struct {
	Elements []EffectsElement `xml:"Element"`
}

type EffectsElement struct {
	Type   string        `xml:"type,attr"`
	Name   string        `xml:"name,attr"`
	Layers []EffectLayer `xml:"EffectLayer"`
}

type EffectLayer struct {
	Effects []Effect `xml:"Effect"`
}

// Effect is one timeline effect. Ref is the EffectDB index (omitted for
// timing-track marker effects, which have no settings-string); Parameters
// preserves any attribute this model doesn't know about, so re-serializing
// a parsed document round-trips unrecognized fields.
type Effect struct {
	HasRef      bool
	Ref         int
	Name        string
	Palette     string
	Label       string
	StartTimeMs int64
	EndTimeMs   int64
	Parameters  map[string]string
}

func (e Effect) MarshalXML(enc *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "Effect"}
	var attrs []xml.Attr
	if e.HasRef {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "ref"}, Value: strconv.Itoa(e.Ref)})
	}
	if e.Name != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "name"}, Value: e.Name})
	}
	if e.Palette != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "palette"}, Value: e.Palette})
	}
	if e.Label != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "label"}, Value: e.Label})
	}
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "startTime"}, Value: strconv.FormatInt(e.StartTimeMs, 10)})
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "endTime"}, Value: strconv.FormatInt(e.EndTimeMs, 10)})

	keys := make([]string, 0, len(e.Parameters))
	for k := range e.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: k}, Value: e.Parameters[k]})
	}

	start.Attr = attrs
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

func (e *Effect) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	e.Parameters = make(map[string]string)
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "ref":
			ref, err := strconv.Atoi(attr.Value)
			if err != nil {
				return fmt.Errorf("xsq: malformed ref attribute %q: %w", attr.Value, err)
			}
			e.HasRef = true
			e.Ref = ref
		case "name":
			e.Name = attr.Value
		case "palette":
			e.Palette = attr.Value
		case "label":
			e.Label = attr.Value
		case "startTime":
			ms, err := strconv.ParseInt(attr.Value, 10, 64)
			if err != nil {
				return fmt.Errorf("xsq: malformed startTime %q: %w", attr.Value, err)
			}
			e.StartTimeMs = ms
		case "endTime":
			ms, err := strconv.ParseInt(attr.Value, 10, 64)
			if err != nil {
				return fmt.Errorf("xsq: malformed endTime %q: %w", attr.Value, err)
			}
			e.EndTimeMs = ms
		default:
			e.Parameters[attr.Name.Local] = attr.Value
		}
	}
	return dec.Skip()
}

// Validate checks the required head fields per §4.5's parser contract.
func (d Document) Validate() error {
	if d.Head.Version == "" {
		return fmt.Errorf("xsq: missing required field version")
	}
	if d.Head.SequenceDuration == "" {
		return fmt.Errorf("xsq: missing required field sequenceDuration")
	}
	if d.Head.MediaFile == "" {
		return fmt.Errorf("xsq: missing required field MediaFile")
	}
	return nil
}

// Write serializes doc to path, matching the teacher's
// xml.MarshalIndent + xml.Header + os.WriteFile pattern
// (internal/exporter/rekordbox.go WriteRekordbox).
func Write(doc Document, path string) error {
	if err := doc.Validate(); err != nil {
		return corerr.Emission(err)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return corerr.Emission(err)
	}
	content := append([]byte(xml.Header), out...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return corerr.Emission(err)
	}
	return nil
}

// Parse reads and validates an XSQ file, the strict inverse of Write.
func Parse(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, corerr.Parse(err)
	}
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Document{}, corerr.Parse(err).WithHint("malformed XML")
	}
	if err := doc.Validate(); err != nil {
		return Document{}, corerr.Parse(err)
	}
	return doc, nil
}
