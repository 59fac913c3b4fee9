package commands

import (
	"strings"

	"github.com/thelyad/postpress/internal/logging"
	"github.com/thelyad/postpress/pkg/interfaces"
)

const commandModuleRoot = "postpress.commands"

// CommandLogger returns a module-scoped logger for command handlers, enriching
// it with consistent structured fields so executions can be filtered by module.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
