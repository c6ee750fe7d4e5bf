package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cuemby/portal/pkg/portal"
	"github.com/cuemby/portal/pkg/types"
	"github.com/spf13/cobra"
)

// Page commands
var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Manage the pages of a scope",
}

var pageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pages in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		all, _ := cmd.Flags().GetBool("all")

		return withApp(func(a *app) error {
			pages, err := a.svc.ListPages(cmd.Context(), scope, all)
			if err != nil {
				return err
			}
			if len(pages) == 0 {
				fmt.Println("No pages found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "INDEX\tPAGE\tCAPTION\tTYPE\tWIDGETS\tFLAGS")
			for _, p := range pages {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
					p.Index, p.PageID, p.Caption, p.Type, len(p.Placements), pageFlags(p))
			}
			return w.Flush()
		})
	},
}

func pageFlags(p *types.Page) string {
	switch {
	case p.Hidden && p.Permanent:
		return "hidden,permanent"
	case p.Hidden:
		return "hidden"
	case p.Permanent:
		return "permanent"
	default:
		return "-"
	}
}

var pageAddCmd = &cobra.Command{
	Use:   "add PAGE_ID",
	Short: "Create a page at the end of the scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		caption, _ := cmd.Flags().GetString("caption")
		pageType, _ := cmd.Flags().GetString("type")
		action, _ := cmd.Flags().GetString("action")
		folder, _ := cmd.Flags().GetString("folder")
		permanent, _ := cmd.Flags().GetBool("permanent")

		return withApp(func(a *app) error {
			page, err := a.svc.CreatePage(cmd.Context(), &types.Page{
				Scope:        scope,
				PageID:       args[0],
				Caption:      caption,
				Type:         types.PageType(pageType),
				Action:       action,
				TargetFolder: folder,
				Permanent:    permanent,
			})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Page %s created at index %d\n", page.PageID, page.Index)
			return nil
		})
	},
}

// guardPermanent refuses to touch a permanent page unless forced
func guardPermanent(ctx context.Context, a *app, scope, pageID string, force bool) error {
	page, err := a.svc.GetPage(ctx, scope, pageID)
	if err != nil {
		return err
	}
	if page.Permanent && !force {
		return fmt.Errorf("page %s is permanent; use --force to change it", page.PageID)
	}
	return nil
}

func pageStateCommand(use, short, done string, apply func(*portal.Service, context.Context, string, string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " PAGE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			force, _ := cmd.Flags().GetBool("force")

			return withApp(func(a *app) error {
				ctx := cmd.Context()
				if err := guardPermanent(ctx, a, scope, args[0], force); err != nil {
					return err
				}
				if err := apply(a.svc, ctx, scope, args[0]); err != nil {
					return err
				}
				fmt.Printf("✓ Page %s %s\n", args[0], done)
				return nil
			})
		},
	}
	cmd.Flags().Bool("force", false, "Allow changing a permanent page")
	return cmd
}

var (
	pageHideCmd   = pageStateCommand("hide", "Hide a page", "hidden", (*portal.Service).HidePage)
	pageShowCmd   = pageStateCommand("show", "Show a hidden page", "shown", (*portal.Service).ShowPage)
	pageDeleteCmd = pageStateCommand("delete", "Delete a page and its widgets", "deleted", (*portal.Service).DeletePage)
)

var pageSwapCmd = &cobra.Command{
	Use:   "swap PAGE_A PAGE_B",
	Short: "Swap the positions of two pages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")

		return withApp(func(a *app) error {
			err := portal.Retry(cmd.Context(), a.retry, func(ctx context.Context) error {
				return a.svc.SwapPageIndexes(ctx, scope, args[0], args[1])
			})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Swapped %s and %s\n", args[0], args[1])
			return nil
		})
	},
}

var pageSetCmd = &cobra.Command{
	Use:   "set PAGE_ID KEY=VALUE...",
	Short: "Replace the properties of a page",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		props, err := parseProperties(args[1:])
		if err != nil {
			return err
		}

		return withApp(func(a *app) error {
			if err := a.svc.UpdatePageProperties(cmd.Context(), scope, args[0], props); err != nil {
				return err
			}
			fmt.Printf("✓ Page %s has %d properties\n", args[0], len(props))
			return nil
		})
	},
}

func init() {
	pageCmd.PersistentFlags().String("scope", "", "Scope owning the pages (required)")
	_ = pageCmd.MarkPersistentFlagRequired("scope")

	pageCmd.AddCommand(pageListCmd)
	pageCmd.AddCommand(pageAddCmd)
	pageCmd.AddCommand(pageHideCmd)
	pageCmd.AddCommand(pageShowCmd)
	pageCmd.AddCommand(pageDeleteCmd)
	pageCmd.AddCommand(pageSwapCmd)
	pageCmd.AddCommand(pageSetCmd)

	pageListCmd.Flags().Bool("all", false, "Include hidden pages")

	pageAddCmd.Flags().String("caption", "", "Display caption (defaults to the page id)")
	pageAddCmd.Flags().String("type", string(types.PageTypePortal), "Page type: portal, link or folder")
	pageAddCmd.Flags().String("action", "", "Link target for link pages")
	pageAddCmd.Flags().String("folder", "", "Child scope for folder pages")
	pageAddCmd.Flags().Bool("permanent", false, "Protect the page from hide and delete")
}
