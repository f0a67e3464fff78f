package app

import (
	"github.com/vk/plugstrap/internal/handlers"
	"github.com/vk/plugstrap/modules/sample"
)

// CoreModules is the definitive list of all handler modules that are
// compiled into the plugstrap binary.
var CoreModules = []handlers.Module{
	&sample.Module{},
}
