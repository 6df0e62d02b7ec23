package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"seatplan/internal/roster"
)

// rosterCommand creates the roster command.
func (c *CLI) rosterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage a classroom's students",
	}
	cmd.AddCommand(c.rosterImportCommand())
	return cmd
}

// rosterImportCommand creates the "roster import" subcommand.
func (c *CLI) rosterImportCommand() *cobra.Command {
	var (
		classroom int64
		format    string
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import students from a CSV or JSON file",
		Long:  `Reads students from a file and upserts them into the classroom. Rows with an id update that student; the others are added.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.classroomID(classroom)
			if err != nil {
				return err
			}
			students, err := roster.ReadFile(args[0], format, id)
			if err != nil {
				return err
			}
			if err := c.newClient().UpsertStudents(cmd.Context(), id, students); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Imported %d students into classroom %d", len(students), id)
			return nil
		},
	}
	addClassroomFlag(cmd, &classroom)
	cmd.Flags().StringVarP(&format, "format", "f", "", "file format: "+strings.Join(roster.Formats(), ", ")+" (default by extension)")
	return cmd
}
