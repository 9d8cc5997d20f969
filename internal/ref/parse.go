package ref

import (
	"strings"

	"github.com/roach88/storygram/internal/graph"
)

// TokenKind classifies one position of a strip.
type TokenKind uint8

const (
	// TokName matches a node by name.
	TokName TokenKind = iota
	// TokLocationStar matches any node at the top of a path.
	TokLocationStar
	// TokLayerStar matches any node owned in Token.Layer.
	TokLayerStar
)

// Token is one position of a strip.
type Token struct {
	Kind  TokenKind
	Name  string      // TokName
	Layer graph.Layer // TokLayerStar
}

func (t Token) String() string {
	switch t.Kind {
	case TokLocationStar:
		return "*"
	case TokLayerStar:
		return t.Layer.String() + "/*"
	}
	return t.Name
}

// Reference is a parsed reference string.
type Reference struct {
	Raw    string
	Strips [][]Token
}

// Head returns the first token, which anchors the reference.
func (r *Reference) Head() Token {
	return r.Strips[0][0]
}

// Leaf returns the last token, which addresses the resolved node.
func (r *Reference) Leaf() Token {
	last := r.Strips[len(r.Strips)-1]
	return last[len(last)-1]
}

// IsSimple reports whether the reference is a single bare identifier.
func (r *Reference) IsSimple() bool {
	return len(r.Strips) == 1 && len(r.Strips[0]) == 1 && r.Strips[0][0].Kind == TokName
}

// Parse tokenizes a reference string.
func Parse(s string) (*Reference, error) {
	if s == "" {
		return nil, newError(ErrCodeSyntax, s, "empty reference")
	}
	segs := strings.Split(s, "/")
	r := &Reference{Raw: s}
	var strip []Token

	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		switch {
		case seg == "":
			return nil, newError(ErrCodeSyntax, s, "empty segment at %d", i)

		case seg == "**":
			if len(strip) == 0 {
				return nil, newError(ErrCodeSyntax, s, "\"**\" must follow a named segment")
			}
			r.Strips = append(r.Strips, strip)
			strip = nil

		case seg == "*":
			if i != 0 {
				return nil, newError(ErrCodeSyntax, s, "\"*\" at %d must follow a layer name", i)
			}
			strip = append(strip, Token{Kind: TokLocationStar})

		default:
			l, err := graph.ParseLayer(seg)
			if err != nil || !l.IsChild() {
				strip = append(strip, Token{Kind: TokName, Name: seg})
				continue
			}
			if i+1 < len(segs) && segs[i+1] == "*" {
				strip = append(strip, Token{Kind: TokLayerStar, Layer: l})
				i++
			}
		}
	}
	if len(strip) == 0 {
		return nil, newError(ErrCodeSyntax, s, "reference must end in a name or wildcard")
	}
	r.Strips = append(r.Strips, strip)
	return r, nil
}
