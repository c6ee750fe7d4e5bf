package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cuemby/portal/pkg/portal"
	"github.com/cuemby/portal/pkg/types"
	"github.com/spf13/cobra"
)

// Widget placement commands
var partCmd = &cobra.Command{
	Use:     "part",
	Aliases: []string{"widget"},
	Short:   "Manage widgets placed on a page",
}

var partListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the widgets a caller sees on a page",
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		pageID, _ := cmd.Flags().GetString("page")
		user, _ := cmd.Flags().GetString("user")
		admin, _ := cmd.Flags().GetBool("admin")

		return withApp(func(a *app) error {
			grouped, err := a.svc.ListPlacements(cmd.Context(), scope, pageID, types.Caller{UserID: user, Admin: admin})
			if err != nil {
				return err
			}
			if len(grouped) == 0 {
				fmt.Println("No widgets found")
				return nil
			}

			locations := make([]string, 0, len(grouped))
			for location := range grouped {
				locations = append(locations, location)
			}
			sort.Strings(locations)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tLOCATION\tINDEX\tNAME\tPERMISSION")
			for _, location := range locations {
				for _, wp := range grouped[location] {
					permission := wp.Permission
					if permission == "" {
						permission = "-"
					}
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", wp.RowID, location, wp.Index, wp.Name, permission)
				}
			}
			return w.Flush()
		})
	},
}

var partAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Place a widget on a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		pageID, _ := cmd.Flags().GetString("page")
		location, _ := cmd.Flags().GetString("location")

		var index *int
		if cmd.Flags().Changed("index") {
			i, _ := cmd.Flags().GetInt("index")
			index = &i
		}

		return withApp(func(a *app) error {
			var wp *types.Placement
			err := portal.Retry(cmd.Context(), a.retry, func(ctx context.Context) error {
				var err error
				wp, err = a.svc.AddPlacement(ctx, scope, pageID, args[0], location, index)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Widget %s placed: id=%d location=%s index=%d\n", wp.Name, wp.RowID, wp.Location, wp.Index)
			return nil
		})
	},
}

var partMoveCmd = &cobra.Command{
	Use:       "move ID up|down",
	Short:     "Move a widget one slot within its location",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(types.DirectionUp), string(types.DirectionDown)},
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		id, err := parseRowID(args[0])
		if err != nil {
			return err
		}

		return withApp(func(a *app) error {
			err := portal.Retry(cmd.Context(), a.retry, func(ctx context.Context) error {
				return a.svc.MovePlacement(ctx, scope, id, types.Direction(args[1]))
			})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Widget %d moved %s\n", id, args[1])
			return nil
		})
	},
}

var partDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a widget from its page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		id, err := parseRowID(args[0])
		if err != nil {
			return err
		}

		return withApp(func(a *app) error {
			if err := a.svc.DeletePlacement(cmd.Context(), scope, id); err != nil {
				return err
			}
			fmt.Printf("✓ Widget %d deleted\n", id)
			return nil
		})
	},
}

var partTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the widget names known to the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			reg := a.svc.Registry()
			names := reg.Names()
			if len(names) == 0 {
				fmt.Println("No widgets registered")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROVIDER\tCATEGORY\tLOCATIONS")
			for _, name := range names {
				e, _ := reg.Lookup(name)
				locations := strings.Join(e.Descriptor.Locations, ",")
				if locations == "" {
					locations = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Provider, e.Descriptor.Category, locations)
			}
			return w.Flush()
		})
	},
}

// Scope commands
var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Manage whole scopes",
}

var scopeDeleteCmd = &cobra.Command{
	Use:   "delete SCOPE",
	Short: "Delete every page and widget of a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.svc.DeleteScope(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Scope %s deleted\n", args[0])
			return nil
		})
	},
}

var scopeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts for the whole store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			stats, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Scopes:     %d\n", stats.Scopes)
			fmt.Printf("Pages:      %d\n", stats.Pages)
			fmt.Printf("Placements: %d\n", stats.Placements)
			return nil
		})
	},
}

func parseRowID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid widget id %q", s)
	}
	return id, nil
}

// parseProperties turns KEY=VALUE arguments into a property map
func parseProperties(args []string) (map[string]string, error) {
	props := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid property %q, expected KEY=VALUE", arg)
		}
		props[strings.TrimSpace(k)] = v
	}
	return props, nil
}

func init() {
	partCmd.PersistentFlags().String("scope", "", "Scope owning the page")
	partCmd.PersistentFlags().String("page", types.DefaultPageID, "Page id")

	partCmd.AddCommand(partListCmd)
	partCmd.AddCommand(partAddCmd)
	partCmd.AddCommand(partMoveCmd)
	partCmd.AddCommand(partDeleteCmd)
	partCmd.AddCommand(partTypesCmd)

	partListCmd.Flags().String("user", "", "Caller user id for permission checks")
	partListCmd.Flags().Bool("admin", false, "List as an administrator")

	partAddCmd.Flags().String("location", types.LocationBody, "Render location")
	partAddCmd.Flags().Int("index", 0, "1-based position within the location (default: append)")

	scopeCmd.AddCommand(scopeDeleteCmd)
	scopeCmd.AddCommand(scopeStatsCmd)
}
