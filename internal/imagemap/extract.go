package imagemap

import (
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/logging"
)

// SourceName labels structures transcribed from image maps.
const SourceName = "imagemap"

var classPage = regexp.MustCompile(`class(oa\w+)\.html`)

// schemaPages are diagram pages whose links stand for the class of the same
// name with the oa prefix.
var schemaPages = map[string]bool{
	"block":      true,
	"term":       true,
	"net":        true,
	"pin":        true,
	"inst":       true,
	"route":      true,
	"occurrence": true,
}

// ClassName derives a class name from an area's link target.
//
//	classoaTerm.html         -> oaTerm
//	../schema/block.html     -> oaBlock
//	other/parasitic.html#x   -> parasitic
func ClassName(target string) string {
	if m := classPage.FindStringSubmatch(target); m != nil {
		return m[1]
	}
	base := target
	if i := strings.IndexAny(base, "#?"); i >= 0 {
		base = base[:i]
	}
	base = path.Base(base)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "." || base == "/" {
		return ""
	}
	if schemaPages[base] {
		r, size := utf8.DecodeRuneInString(base)
		return "oa" + string(unicode.ToUpper(r)) + base[size:]
	}
	return base
}

// Extract transcribes the markup's areas into a structure for diagramName.
//
// Every well-formed rectangle with a link target becomes an imagemap box,
// exempt from area filtering, named after its target. When two areas resolve
// to the same class name the larger one is kept. Malformed coordinates are
// counted per region and never abort the diagram. Box IDs follow area order.
func Extract(diagramName string, m *Markup) *diagram.Structure {
	var regions []Region
	var diag diagram.Diagnostics
	if m != nil {
		for i, a := range m.Areas {
			r, ok, err := Decode(i, a)
			if err != nil {
				logging.Logger().Debug("skipping malformed region", "diagram", diagramName, "error", err)
				diag.Record(err)
				continue
			}
			if ok {
				regions = append(regions, r)
			}
		}
	}

	s := FromRegions(diagramName, regions)
	s.Diagnostics = s.Diagnostics.Add(diag)
	if m != nil {
		s.Title = m.Title
	}
	return s
}

// FromRegions builds a structure from already decoded regions. Regions with
// zero or negative extent are counted as malformed.
func FromRegions(diagramName string, regions []Region) *diagram.Structure {
	s := &diagram.Structure{
		DiagramName:   diagramName,
		Source:        SourceName,
		Boxes:         []diagram.Box{},
		Dividers:      []diagram.DividerLine{},
		Relationships: []diagram.RelationshipEdge{},
	}

	type candidate struct {
		region Region
		name   string
	}
	var kept []candidate
	byName := make(map[string]int)

	for i, r := range regions {
		if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
			s.Diagnostics.Record(&diagram.MalformedRegionError{Index: i, Reason: "non-positive extent"})
			continue
		}
		name := ClassName(r.Target)
		if name != "" {
			if at, dup := byName[name]; dup {
				if r.Area() > kept[at].region.Area() {
					kept[at] = candidate{region: r, name: name}
				}
				continue
			}
			byName[name] = len(kept)
		}
		kept = append(kept, candidate{region: r, name: name})
	}

	for id, c := range kept {
		r := c.region
		s.Boxes = append(s.Boxes, diagram.NewBox(id, r.X1, r.Y1, r.X2-r.X1, r.Y2-r.Y1, diagram.MethodImagemap))
		if c.name != "" {
			s.Names = append(s.Names, diagram.NamedClass{BoxID: id, Name: c.name, Target: r.Target})
		}
	}
	return s
}
