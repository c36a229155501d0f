package export

import (
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CommandExporter hands the export off to an external program, for
// teams that already have their own reporting script.
type CommandExporter struct {
	name string
	args []string
}

// NewCommandExporter splits command on whitespace into a program and its
// arguments. No shell is involved.
func NewCommandExporter(command string) (*CommandExporter, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, eris.New("export: empty command")
	}
	return &CommandExporter{name: fields[0], args: fields[1:]}, nil
}

// Export runs the command and waits for it. A non-zero exit is an error.
func (e *CommandExporter) Export(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, e.name, e.args...)
	out, err := cmd.CombinedOutput()

	log := zap.L().With(zap.String("command", e.name))
	if len(out) > 0 {
		log.Info("export: command output", zap.String("output", strings.TrimSpace(string(out))))
	}
	if err != nil {
		return eris.Wrapf(err, "export: run %s", e.name)
	}
	log.Info("export: command complete")
	return nil
}
