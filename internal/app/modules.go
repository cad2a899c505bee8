package app

import (
	"github.com/vk/magicd/internal/registry"
	"github.com/vk/magicd/modules/auth"
	"github.com/vk/magicd/modules/env"
	"github.com/vk/magicd/modules/eval"
	"github.com/vk/magicd/modules/httpmod"
	"github.com/vk/magicd/modules/logmod"
	"github.com/vk/magicd/modules/sockets"
)

// coreModules is the definitive list of all feature modules that are
// compiled into the magicd binary.
func coreModules(cfg *Config) []registry.Module {
	return []registry.Module{
		&eval.Module{},
		&logmod.Module{},
		&env.Module{},
		&httpmod.Module{},
		&sockets.Module{},
		&auth.Module{Secret: cfg.AuthSecret},
	}
}
