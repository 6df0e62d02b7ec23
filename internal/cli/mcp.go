package cli

import (
	"github.com/spf13/cobra"

	"seatplan/internal/app"
)

// mcpCommand creates the "mcp" command: an agent session on stdin/stdout.
func (c *CLI) mcpCommand() *cobra.Command {
	var classroom int64
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio for one classroom",
		Long:  `Runs a Model Context Protocol server on stdin/stdout. Agents edit the classroom's open plan through the HTTP API configured under client; edits are saved by autosave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.classroomID(classroom)
			if err != nil {
				return err
			}
			cat, err := c.loadCatalog()
			if err != nil {
				return err
			}
			sess := c.newSession(id, cat)
			return app.ServeMCP(cmd.Context(), sess, cat, c.Version, c.Logger)
		},
	}
	addClassroomFlag(cmd, &classroom)
	return cmd
}
