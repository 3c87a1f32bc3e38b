package runtime

import (
	"fmt"
	"strings"
)

// ResolveTool turns a registered tool plus extra arguments into a Request.
// The command is the tool's cmd followed by the arguments joined with
// spaces; arguments are not quoted.
func (rt *Runtime) ResolveTool(id string, args []string) (Request, error) {
	entry, err := rt.tools.Get(id)
	if err != nil {
		return Request{}, err
	}
	base := strings.TrimSpace(entry.String("cmd"))
	if base == "" {
		return Request{}, fmt.Errorf("tool %s has no cmd", id)
	}
	if args == nil {
		args = []string{}
	}
	return Request{
		Command:     strings.TrimSpace(base + " " + strings.Join(args, " ")),
		Tool:        id,
		ToolID:      id,
		ToolVersion: entry.String("tool_version"),
		Argv:        args,
	}, nil
}
