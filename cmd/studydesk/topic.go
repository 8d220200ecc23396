package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"studydesk/internal/desk"

	"github.com/spf13/cobra"
)

var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Manage topics",
}

var topicAddCmd = &cobra.Command{
	Use:   "add NAME CATEGORY",
	Short: "Append a topic to its category",
	Long:  "Append a topic to the end of its category.\nCategories: " + categoryList(),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		resource, _ := cmd.Flags().GetString("resource")

		a, err := newApp("topic add", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		t, err := a.AddTopic(args[0], args[1], resource)
		if errors.Is(err, desk.ErrDuplicateName) {
			fmt.Printf("Topic %q already exists; nothing changed.\n", strings.TrimSpace(args[0]))
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("Added %q to %s at position %d\n", t.Name, t.Category, t.Position)
		return nil
	},
}

var topicRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("topic rm", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		t, err := a.RemoveTopic(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Removed %q from %s\n", t.Name, t.Category)
		return nil
	},
}

var topicMvCmd = &cobra.Command{
	Use:   "mv NAME POSITION",
	Short: "Move a topic to a position within its category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		position, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", desk.ErrInvalidPosition, args[1])
		}

		a, err := newApp("topic mv", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		t, err := a.MoveTopic(args[0], position)
		if err != nil {
			return err
		}
		fmt.Printf("Moved %q to position %d in %s\n", t.Name, t.Position, t.Category)
		return nil
	},
}

var topicLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List topics",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		category, _ := cmd.Flags().GetString("category")
		query, _ := cmd.Flags().GetString("name")

		a, err := newApp("topic ls", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		topics, err := a.ListTopics(category, query)
		if err != nil {
			return err
		}

		if len(topics) == 0 {
			if category != "" || query != "" {
				fmt.Println("No results found.")
			} else {
				fmt.Println("No topics yet.")
			}
			return nil
		}

		for _, t := range topics {
			fmt.Printf("%-13s  %3d  %-30s  %s\n", t.Category, t.Position, t.Name, t.Resource)
		}
		return nil
	},
}

var topicCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show the number of topics per category",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("topic counts", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		counts, err := a.CategoryCounts()
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Println("No topics yet.")
			return nil
		}
		for _, c := range counts {
			fmt.Printf("%-13s  %d\n", c.Category, c.Count)
		}
		return nil
	},
}

var topicImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace all topics with the rows of a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		a, err := newApp("topic import", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, skipped, err := a.ImportTopics(f)
		if err != nil {
			return err
		}
		for _, e := range skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %v\n", e)
		}
		fmt.Printf("Imported %d topic(s), skipped %d row(s)\n", n, len(skipped))
		return nil
	},
}

var topicExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export all topics as CSV (stdout when FILE is omitted or -)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("topic export", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		return a.ExportTopics(firstArg(args), cmd.OutOrStdout())
	},
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func categoryList() string {
	cats := desk.Categories()
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = string(c)
	}
	return strings.Join(labels, ", ")
}

func init() {
	topicCmd.AddCommand(topicAddCmd)
	topicAddCmd.Flags().StringP("resource", "r", desk.DefaultResource, "Learning resource for the topic")
	topicCmd.AddCommand(topicRmCmd)
	topicCmd.AddCommand(topicMvCmd)
	topicCmd.AddCommand(topicLsCmd)
	topicLsCmd.Flags().StringP("category", "c", "", "Only list this category (\"All\" for every category)")
	topicLsCmd.Flags().StringP("name", "q", "", "Only list names containing this text, ignoring case")
	topicCmd.AddCommand(topicCountsCmd)
	topicCmd.AddCommand(topicImportCmd)
	topicCmd.AddCommand(topicExportCmd)
}
