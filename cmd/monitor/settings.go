package main

import (
	"ppemonitor/internal/service/annotate"
)

// Frame sizes requested from the camera for each box style.
var styleFrameSize = map[annotate.Style][2]int{
	annotate.StyleAlert:  {640, 480},
	annotate.StyleCorner: {1280, 720},
}

// captureSettings is what the monitor asks of the camera and the overlay.
type captureSettings struct {
	width   int
	height  int
	showFPS bool
}

// overrides records which settings came from a flag or the environment.
type overrides struct {
	size bool
	fps  bool
}

// settingsFor returns the capture settings for style. The corner style is the
// plain detection monitor: 1280x720 frames with the FPS counter drawn. Values
// set explicitly win over the style defaults.
func settingsFor(style annotate.Style, width, height int, showFPS bool, set overrides) captureSettings {
	s := captureSettings{width: width, height: height, showFPS: showFPS}
	if !set.size {
		size := styleFrameSize[style]
		s.width, s.height = size[0], size[1]
	}
	if !set.fps {
		s.showFPS = style == annotate.StyleCorner
	}
	return s
}
