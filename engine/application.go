package engine

import (
	"github.com/spaghettifunk/anima-overlay/engine/core"
)

type ApplicationConfig struct {
	// Path of the TOML file the config was loaded from. When set the file is
	// watched and clear color and log level follow its changes.
	ConfigPath string
	// Window, renderer and log settings.
	Config *core.Config
}
