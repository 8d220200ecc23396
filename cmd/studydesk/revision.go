package main

import (
	"fmt"

	"studydesk/internal/desk"

	"github.com/spf13/cobra"
)

var revisionCmd = &cobra.Command{
	Use:   "revision",
	Short: "Manage spaced revision schedules",
}

var revisionAddCmd = &cobra.Command{
	Use:   "add TOPIC [DATE]",
	Short: "Schedule revisions for a topic entered on DATE (default today)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("revision add", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		date := ""
		if len(args) == 2 {
			date = args[1]
		}
		rev, err := a.AddRevision(args[0], date)
		if err != nil {
			return err
		}

		fmt.Printf("Scheduled %q (entered %s)\n", rev.TopicName, rev.EntryDate.Format(desk.DateLayout))
		for i, d := range rev.Dates {
			fmt.Printf("  Revision %d  %s\n", i+1, d.Format(desk.DateLayout))
		}
		return nil
	},
}

var revisionRmCmd = &cobra.Command{
	Use:   "rm TOPIC",
	Short: "Remove a topic's revision schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("revision rm", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.RemoveRevision(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed revisions for %q\n", args[0])
		return nil
	},
}

var revisionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List revision schedules",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("revision ls", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		revs, err := a.ListRevisions()
		if err != nil {
			return err
		}
		if len(revs) == 0 {
			fmt.Println("Nothing scheduled yet.")
			return nil
		}

		for _, r := range revs {
			fmt.Printf("%-30s  %s", r.TopicName, r.EntryDate.Format(desk.DateLayout))
			for _, d := range r.Dates {
				fmt.Printf("  %s", d.Format(desk.DateLayout))
			}
			fmt.Println()
		}
		return nil
	},
}

var revisionDueCmd = &cobra.Command{
	Use:   "due [DATE]",
	Short: "Show revisions falling on DATE (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("revision due", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		day, matches, err := a.DueOn(firstArg(args))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Printf("No results found for %s.\n", day.Format(desk.DateLayout))
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%-30s  %s\n", m.TopicName, m.SlotLabel())
		}
		return nil
	},
}

var revisionExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export revision schedules as CSV (stdout when FILE is omitted or -)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("revision export", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		return a.ExportRevisions(firstArg(args), cmd.OutOrStdout())
	},
}

func init() {
	revisionCmd.AddCommand(revisionAddCmd)
	revisionCmd.AddCommand(revisionRmCmd)
	revisionCmd.AddCommand(revisionLsCmd)
	revisionCmd.AddCommand(revisionDueCmd)
	revisionCmd.AddCommand(revisionExportCmd)
}
