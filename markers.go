package blade

import "regexp"

// Resolution markers. The compiler leaves them in the fragment as HTML
// comments; only the resolver reads them and none reach the host renderer.
// Markers of the same kind never nest.
const (
	markerExtends      = "<!-- BLADE_EXTENDS:%s -->"
	markerSectionStart = "<!-- BLADE_SECTION_START:%s -->"
	markerSectionEnd   = "<!-- BLADE_SECTION_END:%s -->"
	markerYield        = "<!-- BLADE_YIELD:%s -->"
	markerDefault      = "<!-- BLADE_DEFAULT:%s -->"
	markerInclude      = "<!-- BLADE_INCLUDE:%s -->"
	markerIncludeWith  = "<!-- BLADE_INCLUDE_WITH:%s:%s -->"
	markerPushStart    = "<!-- BLADE_PUSH_START:%s -->"
	markerPushEnd      = "<!-- BLADE_PUSH_END:%s -->"
	markerStack        = "<!-- BLADE_STACK:%s -->"
	markerComment      = "<!-- BLADE_COMMENT -->"
)

var (
	reExtendsMarker      = regexp.MustCompile(`<!-- BLADE_EXTENDS:(.+?) -->`)
	reSectionStartMarker = regexp.MustCompile(`<!-- BLADE_SECTION_START:(.+?) -->`)
	rePushStartMarker    = regexp.MustCompile(`<!-- BLADE_PUSH_START:(.+?) -->`)
	reStrayEndMarker     = regexp.MustCompile(`<!-- BLADE_(?:SECTION|PUSH)_END:.+? -->`)
	reYieldMarker        = regexp.MustCompile(`<!-- BLADE_YIELD:(.+?) -->(?:<!-- BLADE_DEFAULT:(.*?) -->)?`)
	reStackMarker        = regexp.MustCompile(`<!-- BLADE_STACK:(.+?) -->`)
	reIncludeWithMarker  = regexp.MustCompile(`<!-- BLADE_INCLUDE_WITH:([^:>]+):(\{[^}]*\}) -->`)
	reIncludeMarker      = regexp.MustCompile(`<!-- BLADE_INCLUDE:(.+?) -->`)
)
