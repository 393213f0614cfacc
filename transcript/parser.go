// Package transcript picks the target speaker's utterances out of exported
// session transcripts.
//
// Column 0 of each row holds a composite string: a fixed-width prefix with a
// role marker at a known character offset, followed by the spoken text. Rows
// that continue a turn carry no prefix at all, so the speaker is inferred from
// the last marker seen.
package transcript

// Continuation modes for rows that carry no role marker.
const (
	ContinuationFull = "full"
	ContinuationTrim = "trim"
)

// NoTag disables tag extraction.
const NoTag = -1

// RoleMarkerSpec locates the role marker and utterance text in column 0.
// Offsets count characters, not bytes.
type RoleMarkerSpec struct {
	MarkerOffset int
	TextOffset   int
	TagColumn    int    // NoTag when the source is unlabeled
	Continuation string // ContinuationFull or ContinuationTrim
}

// Roles names the marker of the target speaker and the markers that end a
// target-speaker streak.
type Roles struct {
	Target rune
	Others []rune
}

func DefaultRoles() Roles { return Roles{Target: 'T', Others: []rune{'M', 'F'}} }

func (r Roles) isOther(c rune) bool {
	for _, o := range r.Others {
		if c == o {
			return true
		}
	}
	return false
}

type Utterance struct {
	Row          int // 0-based row index in the sheet
	Text         string
	Tag          string
	Continuation bool
}

type Parser struct {
	spec  RoleMarkerSpec
	roles Roles
}

func NewParser(spec RoleMarkerSpec, roles Roles) *Parser {
	return &Parser{spec: spec, roles: roles}
}

// Parse walks rows in order and returns the utterances attributed to the
// target speaker. Rows whose first cell is too short to hold a marker are
// skipped and leave the speaker state untouched.
func (p *Parser) Parse(rows [][]string) []Utterance {
	var out []Utterance
	isTarget := false
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell := []rune(row[0])
		if len(cell) <= p.spec.MarkerOffset {
			continue
		}
		switch marker := cell[p.spec.MarkerOffset]; {
		case marker == p.roles.Target:
			isTarget = true
			out = append(out, Utterance{Row: i, Text: p.text(cell), Tag: p.tag(row)})
		case p.roles.isOther(marker):
			isTarget = false
		case isTarget:
			text := row[0]
			if p.spec.Continuation == ContinuationTrim {
				text = p.text(cell)
			}
			out = append(out, Utterance{Row: i, Text: text, Tag: p.tag(row), Continuation: true})
		}
	}
	return out
}

func (p *Parser) text(cell []rune) string {
	if p.spec.TextOffset >= len(cell) {
		return ""
	}
	return string(cell[p.spec.TextOffset:])
}

func (p *Parser) tag(row []string) string {
	if p.spec.TagColumn < 0 || p.spec.TagColumn >= len(row) {
		return ""
	}
	return row[p.spec.TagColumn]
}
