package main

import (
	"github.com/burntcarrot/rtdoc/commons"
	"github.com/burntcarrot/rtdoc/tui"
)

// UI runs the document inspector until the user quits.
func UI(s *session, msgChan <-chan commons.Message) error {
	return tui.Run(s, msgChan)
}
