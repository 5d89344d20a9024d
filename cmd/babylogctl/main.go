package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/babylog/babylog/client"
)

var (
	apiFlag string
	keyFlag string
	rootCmd = &cobra.Command{
		Use:   "babylogctl",
		Short: "CLI client for the babylog REST API",
	}
)

func newClient() *client.Client {
	return client.New(apiFlag, keyFlag)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "babylog service base URL")
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", os.Getenv("BABYLOG_API_KEY"), "API key")

	logCmd := &cobra.Command{
		Use:   "log <type>",
		Short: "Record an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			ts, _ := cmd.Flags().GetString("ts")

			in := client.EventInput{}
			if notes != "" {
				in.Notes = &notes
			}
			if len(tags) > 0 {
				in.Tags = &tags
			}
			if ts != "" {
				in.Ts = &ts
			}
			e, err := newClient().LogEvent(context.Background(), args[0], in)
			if err != nil {
				return err
			}
			return printJSON(e)
		},
	}
	logCmd.Flags().StringP("notes", "n", "", "Free-form notes")
	logCmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")
	logCmd.Flags().String("ts", "", "Timestamp override (RFC3339 or offsetless UTC)")
	rootCmd.AddCommand(logCmd)

	lastCmd := &cobra.Command{
		Use:   "last <type>",
		Short: "Show the most recent event of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			last, err := newClient().Last(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(last)
		},
	}
	rootCmd.AddCommand(lastCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := client.ListOptions{}
			opts.Type, _ = cmd.Flags().GetString("type")
			opts.From, _ = cmd.Flags().GetString("from")
			opts.To, _ = cmd.Flags().GetString("to")
			opts.Limit, _ = cmd.Flags().GetInt("limit")
			opts.Cursor, _ = cmd.Flags().GetString("cursor")
			opts.Sort, _ = cmd.Flags().GetString("sort")

			page, err := newClient().ListEvents(context.Background(), opts)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}
	listCmd.Flags().StringP("type", "t", "", "Filter by event type")
	listCmd.Flags().String("from", "", "Window start (inclusive)")
	listCmd.Flags().String("to", "", "Window end (inclusive)")
	listCmd.Flags().IntP("limit", "l", 50, "Page size")
	listCmd.Flags().String("cursor", "", "Page cursor from a previous call")
	listCmd.Flags().String("sort", "", "Sort order: asc or desc")
	rootCmd.AddCommand(listCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Count events inside a lookback window",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetString("period")
			eventType, _ := cmd.Flags().GetString("type")
			stats, err := newClient().Stats(context.Background(), period, eventType)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	statsCmd.Flags().StringP("period", "p", "24h", "Lookback window, e.g. 24h or 7d")
	statsCmd.Flags().StringP("type", "t", "", "Filter by event type")
	rootCmd.AddCommand(statsCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().DeleteEvent(context.Background(), args[0])
		},
	}
	rootCmd.AddCommand(deleteCmd)

	undoCmd := &cobra.Command{
		Use:   "undo <type>",
		Short: "Delete the most recent event of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().DeleteLast(context.Background(), args[0])
		},
	}
	rootCmd.AddCommand(undoCmd)

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all events (server must enable reset)",
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := newClient().Reset(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d events\n", deleted)
			return nil
		},
	}
	rootCmd.AddCommand(resetCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
