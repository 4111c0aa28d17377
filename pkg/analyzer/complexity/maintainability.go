package complexity

import (
	"math"
	"strings"

	"github.com/panbanda/insight/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// LineCounts holds raw line statistics for a module.
type LineCounts struct {
	LOC      int // physical lines
	SLOC     int // non-blank lines that are not comments or docstrings
	Comments int // lines carrying a comment or docstring
	Blank    int
}

// CommentPercent returns comment lines as a percentage of SLOC.
func (c LineCounts) CommentPercent() float64 {
	if c.SLOC == 0 {
		return 0
	}
	return float64(c.Comments) / float64(c.SLOC) * 100
}

// CountLines classifies the lines of a parsed module.
func CountLines(root *sitter.Node, source []byte) LineCounts {
	commentRows := make(map[uint32]bool)
	docRows := make(map[uint32]bool)

	parser.WalkTyped(root, source, func(n *sitter.Node, nodeType string, _ []byte) bool {
		switch nodeType {
		case parser.NodeComment:
			commentRows[n.StartPoint().Row] = true
		case "expression_statement":
			// bare string statements are docstrings
			if n.NamedChildCount() == 1 && n.NamedChild(0).Type() == parser.NodeString {
				for row := n.StartPoint().Row; row <= n.EndPoint().Row; row++ {
					docRows[row] = true
				}
			}
			return false
		}
		return true
	})

	text := string(source)
	lines := strings.Split(text, "\n")
	counts := LineCounts{LOC: strings.Count(text, "\n") + 1}
	for i, line := range lines {
		row := uint32(i)
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			counts.Blank++
		case docRows[row], strings.HasPrefix(trimmed, "#"):
		default:
			counts.SLOC++
		}
		if commentRows[row] || docRows[row] {
			counts.Comments++
		}
	}
	return counts
}

// MaintainabilityIndex computes the 0-100 maintainability index from
// Halstead volume, summed cyclomatic complexity, source lines and the comment
// percentage.
func MaintainabilityIndex(volume float64, cyclomatic int, sloc int, commentPercent float64) float64 {
	if volume <= 0 || sloc <= 0 {
		return 100
	}
	radians := commentPercent * math.Pi / 180
	nn := 171 -
		5.2*math.Log(volume) -
		0.23*float64(cyclomatic) -
		16.2*math.Log(float64(sloc)) +
		50*math.Sin(math.Sqrt(2.46*radians))
	return math.Min(math.Max(0, nn*100/171), 100)
}
