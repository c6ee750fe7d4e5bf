package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/portal/pkg/portal"
	"github.com/cuemby/portal/pkg/storage"
	"github.com/cuemby/portal/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Layout is the YAML document used by apply, import and export. Pages are
// listed in display order and widgets in index order within each location.
type Layout struct {
	Scope string       `yaml:"scope"`
	Pages []LayoutPage `yaml:"pages"`
}

type LayoutPage struct {
	ID         string            `yaml:"id"`
	Caption    string            `yaml:"caption,omitempty"`
	Type       types.PageType    `yaml:"type,omitempty"`
	Action     string            `yaml:"action,omitempty"`
	Folder     string            `yaml:"folder,omitempty"`
	Hidden     bool              `yaml:"hidden,omitempty"`
	Permanent  bool              `yaml:"permanent,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
	Widgets    []LayoutWidget    `yaml:"widgets,omitempty"`
}

type LayoutWidget struct {
	Name            string            `yaml:"name"`
	Location        string            `yaml:"location,omitempty"`
	Permanent       bool              `yaml:"permanent,omitempty"`
	Permission      string            `yaml:"permission,omitempty"`
	PermissionScope string            `yaml:"permissionScope,omitempty"`
	Properties      map[string]string `yaml:"properties,omitempty"`
}

func (l *Layout) validate() error {
	if l.Scope == "" {
		return fmt.Errorf("layout has no scope")
	}
	seen := make(map[string]bool, len(l.Pages))
	for i, p := range l.Pages {
		if p.ID == "" {
			return fmt.Errorf("layout %s: page %d has no id", l.Scope, i)
		}
		key := types.PageKey(p.ID)
		if seen[key] {
			return fmt.Errorf("layout %s: page %s listed twice", l.Scope, p.ID)
		}
		seen[key] = true
		for j, w := range p.Widgets {
			if w.Name == "" {
				return fmt.Errorf("layout %s: page %s widget %d has no name", l.Scope, p.ID, j)
			}
		}
	}
	return nil
}

// apply copies the descriptive fields of lp onto page
func (lp LayoutPage) apply(page *types.Page) {
	page.Caption = lp.Caption
	if page.Caption == "" {
		page.Caption = lp.ID
	}
	page.Type = lp.Type
	if page.Type == "" {
		page.Type = types.PageTypePortal
	}
	page.Action = lp.Action
	page.TargetFolder = lp.Folder
	page.Hidden = lp.Hidden
	page.Permanent = lp.Permanent
	page.Properties = lp.Properties
	if page.Properties == nil {
		page.Properties = map[string]string{}
	}
}

func (lw LayoutWidget) placement() *types.Placement {
	return &types.Placement{
		Name:            lw.Name,
		Location:        types.NormalizeLocation(lw.Location),
		Permanent:       lw.Permanent,
		Permission:      lw.Permission,
		PermissionScope: lw.PermissionScope,
		Properties:      lw.Properties,
	}
}

// pages converts the layout into store rows, indexed in document order
func (l *Layout) pages() []*types.Page {
	out := make([]*types.Page, 0, len(l.Pages))
	for i, lp := range l.Pages {
		page := types.NewPage(l.Scope, lp.ID, i+1)
		lp.apply(page)

		next := make(map[string]int)
		for _, lw := range lp.Widgets {
			wp := lw.placement()
			next[wp.Location]++
			wp.Index = next[wp.Location]
			page.Placements = append(page.Placements, wp)
		}
		out = append(out, page)
	}
	return out
}

// layoutFromPages builds the document for pages already in display order
func layoutFromPages(scope string, pages []*types.Page) *Layout {
	l := &Layout{Scope: scope, Pages: make([]LayoutPage, 0, len(pages))}
	for _, p := range pages {
		lp := LayoutPage{
			ID:         p.PageID,
			Caption:    p.Caption,
			Type:       p.Type,
			Action:     p.Action,
			Folder:     p.TargetFolder,
			Hidden:     p.Hidden,
			Permanent:  p.Permanent,
			Properties: p.Properties,
		}
		if lp.Caption == p.PageID {
			lp.Caption = ""
		}
		if lp.Type == types.PageTypePortal {
			lp.Type = ""
		}
		if len(lp.Properties) == 0 {
			lp.Properties = nil
		}
		for _, wp := range p.Placements {
			lw := LayoutWidget{
				Name:            wp.Name,
				Location:        wp.Location,
				Permanent:       wp.Permanent,
				Permission:      wp.Permission,
				PermissionScope: wp.PermissionScope,
				Properties:      wp.Properties,
			}
			if lw.Location == types.LocationBody {
				lw.Location = ""
			}
			if len(lw.Properties) == 0 {
				lw.Properties = nil
			}
			lp.Widgets = append(lp.Widgets, lw)
		}
		l.Pages = append(l.Pages, lp)
	}
	return l
}

// decodeLayouts reads every YAML document in r
func decodeLayouts(r io.Reader) ([]*Layout, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var layouts []*Layout
	for {
		l := &Layout{}
		err := dec.Decode(l)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse layout: %w", err)
		}
		if err := l.validate(); err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("no layout documents found")
	}
	return layouts, nil
}

func readLayouts(path string) ([]*Layout, error) {
	if path == "-" {
		return decodeLayouts(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout file: %w", err)
	}
	defer f.Close()
	return decodeLayouts(f)
}

// applyLayout makes the stored scope match l. It must run inside a
// transaction so a failure leaves the scope untouched.
func applyLayout(ctx context.Context, svc *portal.Service, l *Layout, prune bool) error {
	wanted := make(map[string]bool, len(l.Pages))
	for _, lp := range l.Pages {
		wanted[types.PageKey(lp.ID)] = true

		page, err := svc.EnsurePage(ctx, l.Scope, lp.ID)
		if err != nil {
			return err
		}

		list := make([]*types.Placement, 0, len(lp.Widgets))
		for _, lw := range lp.Widgets {
			list = append(list, lw.placement())
		}
		if _, err := svc.SavePlacements(ctx, l.Scope, lp.ID, list); err != nil {
			return err
		}

		// Saving widgets shows the page, so the page row goes last
		lp.apply(page)
		if err := svc.UpdatePage(ctx, page); err != nil {
			return err
		}
	}

	if prune {
		pages, err := svc.ListPages(ctx, l.Scope, true)
		if err != nil {
			return err
		}
		for _, p := range pages {
			if !wanted[p.Key()] {
				if err := svc.DeletePage(ctx, l.Scope, p.PageID); err != nil {
					return err
				}
			}
		}
	}

	// Selection sort through swaps keeps every write inside the index
	// uniqueness rule.
	for i, lp := range l.Pages {
		pages, err := svc.ListPages(ctx, l.Scope, true)
		if err != nil {
			return err
		}
		if i >= len(pages) || types.PageKey(pages[i].PageID) == types.PageKey(lp.ID) {
			continue
		}
		if err := svc.SwapPageIndexes(ctx, l.Scope, pages[i].PageID, lp.ID); err != nil {
			return err
		}
	}
	return nil
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Make scopes match a layout file",
	Long: `Apply reads one or more layout documents and rewrites each scope to match:
pages are created or updated, their widgets replaced, and the pages put in
document order. Each document is applied in one transaction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		prune, _ := cmd.Flags().GetBool("prune")

		layouts, err := readLayouts(path)
		if err != nil {
			return err
		}

		return withApp(func(a *app) error {
			for _, l := range layouts {
				err := portal.Retry(cmd.Context(), a.retry, func(ctx context.Context) error {
					return a.store.Update(ctx, func(ctx context.Context, _ storage.Tx) error {
						return applyLayout(ctx, a.svc, l, prune)
					})
				})
				if err != nil {
					return fmt.Errorf("failed to apply layout for %s: %w", l.Scope, err)
				}
				fmt.Printf("✓ Scope %s: %d pages applied\n", l.Scope, len(l.Pages))
			}
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load layouts exported from another system as-is",
	Long: `Import writes layout documents straight into the store without the
uniqueness checks applied to regular writes, so layouts carrying duplicate
indexes survive the migration. The next reorder of an affected scope repairs
its ordering.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")

		layouts, err := readLayouts(path)
		if err != nil {
			return err
		}

		return withApp(func(a *app) error {
			var pages []*types.Page
			for _, l := range layouts {
				pages = append(pages, l.pages()...)
			}
			if err := a.store.Import(cmd.Context(), pages); err != nil {
				return err
			}
			for _, l := range layouts {
				a.cache.Invalidate(l.Scope)
			}
			fmt.Printf("✓ Imported %d pages into %d scopes\n", len(pages), len(layouts))
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the layout of scopes as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		scopes, _ := cmd.Flags().GetStringSlice("scope")
		output, _ := cmd.Flags().GetString("output")

		return withApp(func(a *app) error {
			var out io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			for _, scope := range scopes {
				pages, err := a.svc.EditablePages(cmd.Context(), scope)
				if err != nil {
					return err
				}
				if err := enc.Encode(layoutFromPages(scope, pages)); err != nil {
					return fmt.Errorf("failed to encode layout: %w", err)
				}
			}
			return enc.Close()
		})
	},
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "Layout file, or - for stdin (required)")
	applyCmd.Flags().Bool("prune", false, "Delete pages the layout does not list")
	_ = applyCmd.MarkFlagRequired("file")

	importCmd.Flags().StringP("file", "f", "", "Layout file, or - for stdin (required)")
	_ = importCmd.MarkFlagRequired("file")

	exportCmd.Flags().StringSlice("scope", nil, "Scopes to export (required)")
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	_ = exportCmd.MarkFlagRequired("scope")
}
