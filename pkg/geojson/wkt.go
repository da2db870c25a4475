package geojson

import (
	"fmt"
	"strconv"
	"strings"
)

// FromWKT parses a WKT Point, Polygon or MultiPolygon into a GeoJSON geometry.
func FromWKT(wkt string) (*Geometry, error) {
	wkt = strings.TrimSpace(wkt)
	if wkt == "" {
		return nil, fmt.Errorf("empty WKT string")
	}

	open := strings.IndexByte(wkt, '(')
	if open < 0 {
		return nil, fmt.Errorf("invalid WKT: missing coordinates")
	}
	tag := strings.ToUpper(strings.TrimSpace(wkt[:open]))

	p := &wktParser{s: wkt, pos: open}
	root, err := p.list()
	if err != nil {
		return nil, fmt.Errorf("invalid %s WKT: %w", tag, err)
	}
	if p.skipSpace(); p.pos != len(p.s) {
		return nil, fmt.Errorf("invalid %s WKT: trailing characters at position %d", tag, p.pos)
	}

	switch tag {
	case "POINT":
		if len(root.children) != 1 || root.children[0].position == nil {
			return nil, fmt.Errorf("invalid POINT WKT: expected a single position")
		}
		return newGeometry("Point", root.children[0].position)
	case "POLYGON":
		rings, err := root.rings()
		if err != nil {
			return nil, fmt.Errorf("invalid POLYGON WKT: %w", err)
		}
		return newGeometry("Polygon", rings)
	case "MULTIPOLYGON":
		polygons := make([][][][]float64, 0, len(root.children))
		for _, child := range root.children {
			rings, err := child.rings()
			if err != nil {
				return nil, fmt.Errorf("invalid MULTIPOLYGON WKT: %w", err)
			}
			polygons = append(polygons, rings)
		}
		return newGeometry("MultiPolygon", polygons)
	default:
		return nil, fmt.Errorf("unsupported WKT geometry type %q", tag)
	}
}

// wktNode is either a position or a parenthesized list of nodes.
type wktNode struct {
	position []float64
	children []wktNode
}

func (n wktNode) ring() ([][]float64, error) {
	ring := make([][]float64, 0, len(n.children))
	for _, c := range n.children {
		if c.position == nil {
			return nil, fmt.Errorf("ring must contain positions")
		}
		ring = append(ring, c.position)
	}
	return ring, nil
}

func (n wktNode) rings() ([][][]float64, error) {
	rings := make([][][]float64, 0, len(n.children))
	for _, c := range n.children {
		if c.position != nil {
			return nil, fmt.Errorf("polygon must contain rings")
		}
		ring, err := c.ring()
		if err != nil {
			return nil, err
		}
		if len(ring) < 4 {
			return nil, fmt.Errorf("ring needs at least 4 positions, got %d", len(ring))
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

type wktParser struct {
	s   string
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.s) && isWhitespace(p.s[p.pos]) {
		p.pos++
	}
}

// list parses "(" item ("," item)* ")".
func (p *wktParser) list() (wktNode, error) {
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != '(' {
		return wktNode{}, fmt.Errorf("expected '(' at position %d", p.pos)
	}
	p.pos++

	var node wktNode
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return wktNode{}, fmt.Errorf("unmatched parentheses")
		}

		var item wktNode
		var err error
		if p.s[p.pos] == '(' {
			item, err = p.list()
		} else {
			item.position, err = p.position()
		}
		if err != nil {
			return wktNode{}, err
		}
		node.children = append(node.children, item)

		p.skipSpace()
		if p.pos >= len(p.s) {
			return wktNode{}, fmt.Errorf("unmatched parentheses")
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return node, nil
		default:
			return wktNode{}, fmt.Errorf("unexpected %q at position %d", p.s[p.pos], p.pos)
		}
	}
}

// position parses whitespace-separated numbers up to the next ',' or ')'.
func (p *wktParser) position() ([]float64, error) {
	end := strings.IndexAny(p.s[p.pos:], ",)")
	if end < 0 {
		return nil, fmt.Errorf("unterminated position at %d", p.pos)
	}
	fields := strings.Fields(p.s[p.pos : p.pos+end])
	if len(fields) < 2 {
		return nil, fmt.Errorf("invalid coordinate pair %q", p.s[p.pos:p.pos+end])
	}

	coords := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", f)
		}
		coords = append(coords, v)
	}
	p.pos += end
	return coords[:2], nil
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
