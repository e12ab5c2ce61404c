package models

import (
	"fmt"
	"strconv"
	"strings"
)

// RootPath addresses the whole payload.
const RootPath = "$"

type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return s.Key
}

// Path is a parsed field location such as `candidate.firstName`,
// `confirmationIds[0].value` or `meta["x.y"]`.
type Path struct {
	raw      string
	segments []Segment
}

func ParsePath(raw string) (Path, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Path{}, fmt.Errorf("empty field path")
	}
	if s == RootPath {
		return Path{raw: s}, nil
	}

	var segments []Segment
	expectKey := true
	i := 0
	for i < len(s) {
		switch c := s[i]; {
		case c == '[':
			end, err := bracketEnd(s, i)
			if err != nil {
				return Path{}, fmt.Errorf("field path %q: %w", s, err)
			}
			seg, err := parseBracket(s[i+1 : end])
			if err != nil {
				return Path{}, fmt.Errorf("field path %q: %w", s, err)
			}
			segments = append(segments, seg)
			i = end + 1
			expectKey = false
		case c == '.':
			if expectKey {
				return Path{}, fmt.Errorf("field path %q: empty segment at offset %d", s, i)
			}
			i++
			if i == len(s) {
				return Path{}, fmt.Errorf("field path %q: trailing '.'", s)
			}
			expectKey = true
		case c == ']':
			return Path{}, fmt.Errorf("field path %q: unexpected ']' at offset %d", s, i)
		default:
			if !expectKey {
				return Path{}, fmt.Errorf("field path %q: missing '.' before offset %d", s, i)
			}
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' && s[j] != ']' {
				j++
			}
			segments = append(segments, Segment{Key: s[i:j]})
			i = j
			expectKey = false
		}
	}

	return Path{raw: s, segments: segments}, nil
}

// bracketEnd returns the offset of the ']' closing the bracket opened at
// open. A quoted key ends at its closing quote, so it may contain ']'.
func bracketEnd(s string, open int) (int, error) {
	start := open + 1
	if start < len(s) && (s[start] == '"' || s[start] == '\'') {
		closing := strings.IndexByte(s[start+1:], s[start])
		if closing < 0 {
			return 0, fmt.Errorf("unterminated quoted key at offset %d", open)
		}
		end := start + 1 + closing + 1
		if end >= len(s) || s[end] != ']' {
			return 0, fmt.Errorf("expected ']' after quoted key at offset %d", end)
		}
		return end, nil
	}
	end := strings.IndexByte(s[start:], ']')
	if end < 0 {
		return 0, fmt.Errorf("unterminated '[' at offset %d", open)
	}
	return start + end, nil
}

func parseBracket(inner string) (Segment, error) {
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		return Segment{Key: inner[1 : len(inner)-1]}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(inner))
	if err != nil || n < 0 {
		return Segment{}, fmt.Errorf("invalid index %q", inner)
	}
	return Segment{Index: n, IsIndex: true}, nil
}

func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.raw }

func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

func (p Path) IsRoot() bool { return len(p.segments) == 0 }

// Lookup resolves p inside v. The boolean is false when any segment is absent
// or addresses the wrong container kind. An explicit JSON null is present.
func (v Value) Lookup(p Path) (Value, bool) {
	cur := v
	for _, seg := range p.segments {
		var ok bool
		if seg.IsIndex {
			cur, ok = cur.Index(seg.Index)
		} else {
			cur, ok = cur.Field(seg.Key)
		}
		if !ok {
			return Value{}, false
		}
	}
	return cur, true
}

// LookupString parses raw and resolves it; malformed paths never resolve.
func (v Value) LookupString(raw string) (Value, bool) {
	p, err := ParsePath(raw)
	if err != nil {
		return Value{}, false
	}
	return v.Lookup(p)
}
