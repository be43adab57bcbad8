// Package imagemap transcribes HTML image maps into diagram structures.
//
// An image map lists the clickable rectangles of a diagram with their link
// targets. Each rectangle is exact, so it becomes a box directly and its link
// target names the class. No pixel analysis is involved.
package imagemap

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
)

// Area is one <area> element as written in the markup.
type Area struct {
	Shape  string `json:"shape"`
	Coords string `json:"coords"`
	Href   string `json:"href"`
	Alt    string `json:"alt,omitempty"`
}

// Markup is the image map content of one HTML page.
type Markup struct {
	// Title is the text of the first <h1>, or of <title> when there is none.
	Title string `json:"title,omitempty"`

	// MapName is the name attribute of the map the areas came from.
	MapName string `json:"map_name,omitempty"`

	Areas []Area `json:"areas"`
}

// Parse reads HTML and returns the areas of its first <map> element.
// A page without a map yields a Markup with no areas.
func Parse(r io.Reader) (*Markup, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	m := &Markup{Areas: []Area{}}
	if h1 := findFirst(doc, atom.H1); h1 != nil {
		m.Title = collectText(h1)
	}
	if m.Title == "" {
		if t := findFirst(doc, atom.Title); t != nil {
			m.Title = collectText(t)
		}
	}

	mapNode := findFirst(doc, atom.Map)
	if mapNode == nil {
		return m, nil
	}
	m.MapName = attr(mapNode, "name")
	collectAreas(mapNode, &m.Areas)
	return m, nil
}

// ParseFile reads and parses an HTML file.
func ParseFile(path string) (*Markup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open markup: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func collectAreas(n *html.Node, out *[]Area) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Area {
		*out = append(*out, Area{
			Shape:  attr(n, "shape"),
			Coords: attr(n, "coords"),
			Href:   attr(n, "href"),
			Alt:    attr(n, "alt"),
		})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectAreas(c, out)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Region is a decoded rectangular area. Coordinates are the inclusive
// top-left and exclusive bottom-right corners.
type Region struct {
	X1     int    `json:"x1"`
	Y1     int    `json:"y1"`
	X2     int    `json:"x2"`
	Y2     int    `json:"y2"`
	Target string `json:"target"`
}

// Area returns the region's area in square pixels.
func (r Region) Area() int {
	return (r.X2 - r.X1) * (r.Y2 - r.Y1)
}

// Decode converts the area at position index into a Region.
//
// ok is false for areas that are not rectangles or carry no link target;
// these are skipped silently. A rectangle whose coordinates cannot be decoded
// returns a *diagram.MalformedRegionError.
func Decode(index int, a Area) (r Region, ok bool, err error) {
	shape := strings.ToLower(a.Shape)
	if shape != "" && shape != "rect" && shape != "rectangle" {
		return Region{}, false, nil
	}
	if a.Href == "" {
		return Region{}, false, nil
	}

	malformed := func(reason string) error {
		return &diagram.MalformedRegionError{Index: index, Coords: a.Coords, Reason: reason}
	}

	parts := strings.Split(a.Coords, ",")
	if len(parts) != 4 {
		return Region{}, false, malformed(fmt.Sprintf("want 4 values, got %d", len(parts)))
	}
	var v [4]int
	for i, p := range parts {
		n, convErr := strconv.Atoi(strings.TrimSpace(p))
		if convErr != nil {
			return Region{}, false, malformed(fmt.Sprintf("value %d is not an integer", i))
		}
		v[i] = n
	}

	x1, x2 := min(v[0], v[2]), max(v[0], v[2])
	y1, y2 := min(v[1], v[3]), max(v[1], v[3])
	if x1 == x2 || y1 == y2 {
		return Region{}, false, malformed("zero-area rectangle")
	}
	if x1 < 0 || y1 < 0 {
		return Region{}, false, malformed("negative coordinate")
	}
	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2, Target: a.Href}, true, nil
}
