package types

import (
	"fmt"
	"strconv"
	"strings"
)

// PathSeg is one step in a locator path: an object key or an array index.
type PathSeg struct {
	Key     string `json:"key,omitempty"`
	Index   int    `json:"index,omitempty"`
	IsIndex bool   `json:"is_index,omitempty"`
}

// Locator is a structural path from a document root to one record
// occurrence. It renders to a gjson/sjson path for lookup and mutation.
type Locator struct {
	Segs []PathSeg `json:"segs"`
}

// KeySeg returns an object-key path segment
func KeySeg(key string) PathSeg {
	return PathSeg{Key: key}
}

// IndexSeg returns an array-index path segment
func IndexSeg(i int) PathSeg {
	return PathSeg{Index: i, IsIndex: true}
}

// Child returns a new locator extended by one segment. The receiver's
// segment slice is never aliased, so locators derived during traversal
// stay independent.
func (l Locator) Child(seg PathSeg) Locator {
	segs := make([]PathSeg, len(l.Segs), len(l.Segs)+1)
	copy(segs, l.Segs)
	return Locator{Segs: append(segs, seg)}
}

// Container returns the locator of the enclosing container (all segments
// but the last). The root locator's container is the empty locator.
func (l Locator) Container() Locator {
	if len(l.Segs) == 0 {
		return Locator{}
	}
	segs := make([]PathSeg, len(l.Segs)-1)
	copy(segs, l.Segs[:len(l.Segs)-1])
	return Locator{Segs: segs}
}

// Leaf returns the final path segment and whether one exists
func (l Locator) Leaf() (PathSeg, bool) {
	if len(l.Segs) == 0 {
		return PathSeg{}, false
	}
	return l.Segs[len(l.Segs)-1], true
}

// Path renders the locator as a gjson/sjson path. Object keys are escaped
// so keys containing path metacharacters resolve literally.
func (l Locator) Path() string {
	parts := make([]string, 0, len(l.Segs))
	for _, seg := range l.Segs {
		if seg.IsIndex {
			parts = append(parts, strconv.Itoa(seg.Index))
		} else {
			parts = append(parts, escapePathKey(seg.Key))
		}
	}
	return strings.Join(parts, ".")
}

// String renders a human-readable form for logs and reports
func (l Locator) String() string {
	if len(l.Segs) == 0 {
		return "(root)"
	}
	var b strings.Builder
	for _, seg := range l.Segs {
		if seg.IsIndex {
			fmt.Fprintf(&b, "[%d]", seg.Index)
		} else {
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}

// ContainerKey renders the container path with indices stripped, e.g.
// "sections.insights" for sections[2].insights[5]. Used as the structural
// fallback group key: parallel containers across files share scope.
func (l Locator) ContainerKey() string {
	parts := make([]string, 0, len(l.Segs))
	for i, seg := range l.Segs {
		if i == len(l.Segs)-1 {
			break
		}
		if !seg.IsIndex {
			parts = append(parts, seg.Key)
		}
	}
	return strings.Join(parts, ".")
}

// gjson path metacharacters that must be backslash-escaped in literal keys
const pathMetaChars = `\.|#@*?`

func escapePathKey(key string) string {
	if !strings.ContainsAny(key, pathMetaChars) {
		return key
	}
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		if strings.ContainsRune(pathMetaChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
