package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"seatplan/internal/grid"
	"seatplan/internal/service"
)

// planCommand creates the plan management command.
func (c *CLI) planCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage a classroom's seating plans through the API",
	}

	cmd.AddCommand(c.planListCommand())
	cmd.AddCommand(c.planCreateCommand())
	cmd.AddCommand(c.planActivateCommand())
	cmd.AddCommand(c.planDuplicateCommand())
	cmd.AddCommand(c.planResetCommand())
	cmd.AddCommand(c.planDeleteCommand())

	return cmd
}

func parsePlanID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid plan id %q", arg)
	}
	return id, nil
}

// planListCommand creates the "plan list" subcommand.
func (c *CLI) planListCommand() *cobra.Command {
	var classroom int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans; the active one is marked",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.classroomID(classroom)
			if err != nil {
				return err
			}
			b, err := c.newClient().Fetch(cmd.Context(), id, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(b.Plans) == 0 {
				printInfo(out, "Classroom %d has no plans", id)
				return nil
			}
			fmt.Fprintln(out, styleTitle.Render(fmt.Sprintf("Classroom %d", id)))
			for _, p := range b.Plans {
				mark := " "
				if p.IsActive {
					mark = styleActive.Render(iconActive)
				}
				fmt.Fprintf(out, "%s %4d  %-24s %s\n", mark, p.ID, p.Name,
					styleDim.Render(fmt.Sprintf("%dx%d", p.Width, p.Height)))
			}
			printDetail(out, "%d students on the roster", len(b.Students))
			return nil
		},
	}
	addClassroomFlag(cmd, &classroom)
	return cmd
}

// planCreateCommand creates the "plan create" subcommand.
func (c *CLI) planCreateCommand() *cobra.Command {
	var (
		classroom     int64
		width, height int
		activate      bool
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.classroomID(classroom)
			if err != nil {
				return err
			}
			cl := c.newClient()
			planID, err := cl.CreatePlan(cmd.Context(), service.CreatePlanInput{
				ClassroomID: id,
				Name:        args[0],
				Width:       width,
				Height:      height,
				GridSize:    grid.Subdiv,
			})
			if err != nil {
				return err
			}
			if activate {
				if err := cl.ActivatePlan(cmd.Context(), planID); err != nil {
					return err
				}
			}
			printSuccess(cmd.OutOrStdout(), "Created plan %d", planID)
			return nil
		},
	}
	addClassroomFlag(cmd, &classroom)
	cmd.Flags().IntVar(&width, "width", 0, "room width in units (0 uses the server default)")
	cmd.Flags().IntVar(&height, "height", 0, "room height in units (0 uses the server default)")
	cmd.Flags().BoolVar(&activate, "activate", false, "make the new plan active")
	return cmd
}

// planActivateCommand creates the "plan activate" subcommand.
func (c *CLI) planActivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <plan-id>",
		Short: "Make a plan its classroom's active plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			if err := c.newClient().ActivatePlan(cmd.Context(), id); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Plan %d is active", id)
			return nil
		},
	}
}

// planDuplicateCommand creates the "plan duplicate" subcommand.
func (c *CLI) planDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <plan-id>",
		Short: "Copy a plan with its seats, positions and furniture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			copyID, err := c.newClient().DuplicatePlan(cmd.Context(), id)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Copied plan %d to %d", id, copyID)
			return nil
		},
	}
}

// planResetCommand creates the "plan reset" subcommand.
func (c *CLI) planResetCommand() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "reset <plan-id>",
		Short: "Remove every position and furniture item from a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			res, err := c.newClient().ResetPlan(cmd.Context(), id, full)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSuccess(out, "Reset plan %d", id)
			printDetail(out, "removed %d positions, %d furniture items, %d seats", res.Positions, res.Furniture, res.Seats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "also remove seat templates")
	return cmd
}

// planDeleteCommand creates the "plan delete" subcommand.
func (c *CLI) planDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a plan and its layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			if err := c.newClient().DeletePlan(cmd.Context(), id); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Deleted plan %d", id)
			return nil
		},
	}
}
