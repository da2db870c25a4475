package snap

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// paramsClass is the DOM element class gpt expects on parameter blocks.
const paramsClass = "com.bc.ceres.binding.dom.XppDomElement"

type xmlGraph struct {
	XMLName xml.Name  `xml:"graph"`
	ID      string    `xml:"id,attr"`
	Version string    `xml:"version"`
	Nodes   []xmlNode `xml:"node"`
}

type xmlNode struct {
	ID         string     `xml:"id,attr"`
	Operator   string     `xml:"operator"`
	Sources    xmlSources `xml:"sources"`
	Parameters xmlParams  `xml:"parameters"`
}

// xmlSources encodes as sourceProduct, sourceProduct.1, sourceProduct.2, ...
type xmlSources []string

func (s xmlSources) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for i, ref := range s {
		name := "sourceProduct"
		if i > 0 {
			name = fmt.Sprintf("sourceProduct.%d", i)
		}
		el := xml.StartElement{
			Name: xml.Name{Local: name},
			Attr: []xml.Attr{{Name: xml.Name{Local: "refid"}, Value: ref}},
		}
		if err := e.EncodeToken(el); err != nil {
			return err
		}
		if err := e.EncodeToken(el.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// xmlParams encodes each parameter as a child element, sorted by name.
type xmlParams Params

func (p xmlParams) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "class"}, Value: paramsClass})
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		el := xml.StartElement{Name: xml.Name{Local: k}}
		if err := e.EncodeElement(formatValue(p[k]), el); err != nil {
			return fmt.Errorf("parameter %s: %w", k, err)
		}
	}
	return e.EncodeToken(start.End())
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case []string:
		return strings.Join(x, ",")
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Encode writes the graph as GPF graph XML.
func (g *Graph) Encode(w io.Writer) error {
	nodes, err := g.Nodes()
	if err != nil {
		return err
	}

	doc := xmlGraph{ID: "Graph", Version: "1.0", Nodes: make([]xmlNode, 0, len(nodes))}
	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, xmlNode{
			ID:         n.ID,
			Operator:   n.Operator,
			Sources:    xmlSources(n.Sources),
			Parameters: xmlParams(n.Params),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return enc.Close()
}
