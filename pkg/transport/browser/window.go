package browser

import (
	"strconv"
	"strings"

	"github.com/joeydtaylor/steeze-iso/pkg/document"
)

// Window is the part of the page environment the dispatcher drives.
type Window interface {
	// Host is the current page's host (location.host).
	Host() string
	// Location is the current page URL (location.href).
	Location() string
	PushState(url string)
	// Navigate performs a native, full-page navigation.
	Navigate(url, target string)
}

// Committer is implemented by windows whose visible page is separate from
// the document handle the chain renders into. Commit publishes doc.
type Committer interface {
	Commit(doc document.Handle) error
}

// Link is an activated anchor or area element.
type Link struct {
	Href   string
	Target string
	// External is set for links marked data-link="outside".
	External bool
}

// PathSelector addresses the element reached from body by following the
// given 1-based child positions.
func PathSelector(pos []int) string {
	var b strings.Builder
	b.WriteString("body")
	for _, p := range pos {
		b.WriteString(" > :nth-child(")
		b.WriteString(strconv.Itoa(p))
		b.WriteString(")")
	}
	return b.String()
}
