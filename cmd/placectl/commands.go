package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/onnwee/golocal/internal/bookmark"
	"github.com/onnwee/golocal/internal/geo"
	"github.com/onnwee/golocal/internal/maplink"
	"github.com/onnwee/golocal/internal/place"
	"github.com/onnwee/golocal/internal/query"
	"github.com/onnwee/golocal/internal/viewport"
)

// listEntry is one row of the query output.
type listEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	IsFree   bool   `json:"is_free"`
	Favorite bool   `json:"favorite"`
	SeeLater bool   `json:"see_later"`
	Located  bool   `json:"located"`
	Geohash  string `json:"geohash,omitempty"`
}

type placeDetail struct {
	place.Place
	Favorite bool           `json:"favorite"`
	SeeLater bool           `json:"see_later"`
	Links    *maplink.Links `json:"links,omitempty"`
}

type viewportOutput struct {
	Viewport   viewport.Viewport `json:"viewport"`
	MarkerSize viewport.Tier     `json:"marker_size"`
}

type bookmarkListOutput struct {
	Set      bookmark.SetName `json:"set"`
	IDs      []string         `json:"ids"`
	Places   []listEntry      `json:"places"`
	Missing  []string         `json:"missing,omitempty"`
	Degraded bool             `json:"degraded,omitempty"`
}

type validateOutput struct {
	Places     int      `json:"places"`
	Located    int      `json:"located"`
	Unlocated  []string `json:"unlocated,omitempty"`
	Categories []string `json:"categories"`
}

// membership loads both bookmark sets once for annotating a listing.
func (a *app) membership(cmd *cobra.Command) (favorites, seeLater map[string]bool) {
	t := a.Toggler()
	load := func(set bookmark.SetName) map[string]bool {
		view := t.Load(cmd.Context(), localOwner, set)
		m := make(map[string]bool, len(view.IDs))
		for _, id := range view.IDs {
			m[id] = true
		}
		return m
	}
	return load(bookmark.Favorites), load(bookmark.SeeLater)
}

func entries(places []place.Place, favorites, seeLater map[string]bool) []listEntry {
	out := make([]listEntry, 0, len(places))
	for _, p := range places {
		out = append(out, listEntry{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			IsFree:   p.IsFree,
			Favorite: favorites[p.ID],
			SeeLater: seeLater[p.ID],
			Located:  p.HasLocation(),
			Geohash:  p.Geohash,
		})
	}
	return out
}

func newQueryCmd(a *app) *cobra.Command {
	var text, filter, sort string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List places matching a search text and filter",
		Long: `List places sorted by name.

--filter accepts free, paid, all or a category name (case-insensitive).
--sort accepts asc or desc.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := query.ParseSortOrder(sort)
			if err != nil {
				return err
			}
			catalog, err := a.Catalog()
			if err != nil {
				return err
			}
			places := query.Query(catalog.All(), query.Criteria{
				SearchText: text,
				Filter:     query.ParseFilter(filter),
				Sort:       order,
			})
			favorites, seeLater := a.membership(cmd)
			return a.print(cmd.OutOrStdout(), entries(places, favorites, seeLater))
		},
	}
	cmd.Flags().StringVarP(&text, "search", "q", "", "Search text matched against name and description")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "free, paid, all or a category")
	cmd.Flags().StringVarP(&sort, "sort", "s", "asc", "Name order: asc or desc")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "show <place-id>",
		Short: "Show one place with its map links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.Catalog()
			if err != nil {
				return err
			}
			p, ok := catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("place %q not found", args[0])
			}
			favorites, seeLater := a.membership(cmd)
			return a.print(cmd.OutOrStdout(), placeDetail{
				Place:    p,
				Favorite: favorites[p.ID],
				SeeLater: seeLater[p.ID],
				Links:    maplink.LinksFor(p, maplink.ParsePlatform(platform)),
			})
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "web", "Link flavor: ios, android or web")
	return cmd
}

func newViewportCmd(a *app) *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "viewport",
		Short: "Print the initial map region, or one centered on --lat/--lng",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			calc := viewport.NewCalculator(viewport.DefaultConfig())

			var v viewport.Viewport
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
					return fmt.Errorf("--lat and --lng must be given together")
				}
				var err error
				v, err = calc.RecenterOnUser(geo.Coordinate{Latitude: lat, Longitude: lng})
				if err != nil {
					return err
				}
			} else {
				catalog, err := a.Catalog()
				if err != nil {
					return err
				}
				v = calc.Initial(catalog.All())
			}
			return a.print(cmd.OutOrStdout(), viewportOutput{Viewport: v, MarkerSize: v.Tier()})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "User latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "User longitude")
	return cmd
}

func newMapLinkCmd(a *app) *cobra.Command {
	var platform, mode string

	cmd := &cobra.Command{
		Use:   "maplink <place-id>",
		Short: "Print an external map link for a place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := maplink.ParseMode(mode)
			if err != nil {
				return err
			}
			catalog, err := a.Catalog()
			if err != nil {
				return err
			}
			p, ok := catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("place %q not found", args[0])
			}
			url, err := maplink.ForPlace(p, maplink.ParsePlatform(platform), m)
			if err != nil {
				return fmt.Errorf("%s: %w", p.ID, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
			return err
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "web", "Link flavor: ios, android or web")
	cmd.Flags().StringVarP(&mode, "mode", "m", "view", "view or directions")
	return cmd
}

func newBookmarkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage the favorites and see-later lists",
	}

	toggle := &cobra.Command{
		Use:   "toggle <favorites|seeLater> <place-id>",
		Short: "Add the place to the list, or remove it when already there",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := bookmark.ParseSetName(args[0])
			if err != nil {
				return err
			}
			catalog, err := a.Catalog()
			if err != nil {
				return err
			}
			if !catalog.Has(args[1]) {
				return fmt.Errorf("place %q not found", args[1])
			}
			result, err := a.Toggler().Toggle(cmd.Context(), localOwner, set, args[1])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}

	list := &cobra.Command{
		Use:   "list <favorites|seeLater>",
		Short: "List the places in a bookmark set, in the order they were added",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := bookmark.ParseSetName(args[0])
			if err != nil {
				return err
			}
			catalog, err := a.Catalog()
			if err != nil {
				return err
			}
			view := a.Toggler().Load(cmd.Context(), localOwner, set)
			resolved := catalog.Resolve(view.IDs)

			// Ids left behind by a dataset update are kept in the set but reported.
			var missing []string
			for _, id := range view.IDs {
				if !catalog.Has(id) {
					missing = append(missing, id)
				}
			}
			favorites, seeLater := a.membership(cmd)
			return a.print(cmd.OutOrStdout(), bookmarkListOutput{
				Set:      set,
				IDs:      view.IDs,
				Places:   entries(resolved, favorites, seeLater),
				Missing:  missing,
				Degraded: view.Degraded,
			})
		},
	}

	cmd.AddCommand(toggle, list)
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the local profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cmd.OutOrStdout(), a.Profiles().Load(cmd.Context(), localOwner))
		},
	}

	name := &cobra.Command{
		Use:   "name <display-name>",
		Short: "Set the display name (empty resets to the default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.Profiles().SetDisplayName(cmd.Context(), localOwner, args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), p)
		},
	}

	var clearPhoto bool
	photo := &cobra.Command{
		Use:   "photo [image-ref]",
		Short: "Set the avatar reference, or remove it with --clear",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.Profiles()
			if clearPhoto {
				p, err := svc.ClearAvatar(cmd.Context(), localOwner)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), p)
			}
			if len(args) == 0 {
				return fmt.Errorf("an image reference or --clear is required")
			}
			p, err := svc.SetAvatar(cmd.Context(), localOwner, args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), p)
		},
	}
	photo.Flags().BoolVar(&clearPhoto, "clear", false, "Remove the avatar")

	darkMode := &cobra.Command{
		Use:   "dark-mode <on|off>",
		Short: "Switch the dark theme on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			p, err := a.Profiles().SetDarkMode(cmd.Context(), localOwner, enabled)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), p)
		},
	}

	cmd.AddCommand(name, photo, darkMode)
	return cmd
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the dataset and report what the app will see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.Catalog()
			if err != nil {
				return fmt.Errorf("dataset invalid: %w", err)
			}
			out := validateOutput{
				Places:     catalog.Len(),
				Located:    len(catalog.WithLocation()),
				Categories: catalog.Categories(),
			}
			for _, p := range catalog.All() {
				if !p.HasLocation() {
					out.Unlocated = append(out.Unlocated, p.ID)
				}
			}
			return a.print(cmd.OutOrStdout(), out)
		},
	}
}
