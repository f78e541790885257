// SPDX-License-Identifier: EPL-2.0

// Package metadata reads and writes the speaker-geometry documents that
// travel with audio frames:
//
//	<VirtualSpeakers>
//	  <Speaker x="-1" y="0" z="1" gain="0.8" objectbased="true"/>
//	</VirtualSpeakers>
//
// Speaker elements are collected wherever they appear in the document.
// Coordinates are required, gain defaults to 1, and the presence of an
// objectbased attribute on any speaker marks the whole layout object-based.
package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ik5/audrx/speaker"
)

const (
	rootElement    = "VirtualSpeakers"
	speakerElement = "Speaker"
)

// Parse extracts the speaker layout from doc. An empty document yields an
// empty layout and no error.
func Parse(doc string) (speaker.Layout, error) {
	var layout speaker.Layout

	if strings.TrimSpace(doc) == "" {
		return layout, nil
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return speaker.Layout{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != speakerElement {
			continue
		}

		pos, gain, objectBased, err := parseSpeaker(start)
		if err != nil {
			return speaker.Layout{}, fmt.Errorf("speaker %d: %w", len(layout.Positions), err)
		}

		layout.Positions = append(layout.Positions, pos)
		layout.Gains = append(layout.Gains, gain)
		layout.ObjectBased = layout.ObjectBased || objectBased
	}

	return layout, nil
}

func parseSpeaker(el xml.StartElement) (speaker.Vec3, float32, bool, error) {
	var (
		pos         speaker.Vec3
		gain        float32 = 1
		objectBased bool
		seen        [3]bool
	)

	for _, attr := range el.Attr {
		var dst *float32
		switch attr.Name.Local {
		case "x":
			dst, seen[0] = &pos.X, true
		case "y":
			dst, seen[1] = &pos.Y, true
		case "z":
			dst, seen[2] = &pos.Z, true
		case "gain":
			dst = &gain
		case "objectbased":
			objectBased = true
			continue
		default:
			continue
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(attr.Value), 32)
		if err != nil {
			return pos, 0, false, fmt.Errorf("%w: %s=%q", ErrMalformed, attr.Name.Local, attr.Value)
		}
		*dst = float32(v)
	}

	for i, ok := range seen {
		if !ok {
			return pos, 0, false, fmt.Errorf("%w: %c", ErrMissingCoord, "xyz"[i])
		}
	}

	return pos, gain, objectBased, nil
}

// Generate renders layout as a metadata document. Gains equal to 1 are
// omitted unless the layout is object-based, where every speaker carries
// both markers.
func Generate(layout speaker.Layout) (string, error) {
	if len(layout.Gains) != 0 && len(layout.Gains) != len(layout.Positions) {
		return "", ErrGainMismatch
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	root := xml.StartElement{Name: xml.Name{Local: rootElement}}
	if err := enc.EncodeToken(root); err != nil {
		return "", fmt.Errorf("%w", err)
	}

	for i, pos := range layout.Positions {
		el := xml.StartElement{Name: xml.Name{Local: speakerElement}}
		if layout.ObjectBased {
			el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: "objectbased"}, Value: "true"})
		}
		el.Attr = append(el.Attr,
			floatAttr("x", pos.X),
			floatAttr("y", pos.Y),
			floatAttr("z", pos.Z),
		)
		if g := layout.Gain(i); layout.ObjectBased || g != 1 {
			el.Attr = append(el.Attr, floatAttr("gain", g))
		}

		if err := enc.EncodeToken(el); err != nil {
			return "", fmt.Errorf("%w", err)
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return "", fmt.Errorf("%w", err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return "", fmt.Errorf("%w", err)
	}
	if err := enc.Flush(); err != nil {
		return "", fmt.Errorf("%w", err)
	}

	return buf.String(), nil
}

func floatAttr(name string, v float32) xml.Attr {
	return xml.Attr{
		Name:  xml.Name{Local: name},
		Value: strconv.FormatFloat(float64(v), 'g', -1, 32),
	}
}
