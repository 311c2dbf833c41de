package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"restaurant-tracker-api/catalog"
	"restaurant-tracker-api/models"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	seedFile  string
	seedOwner string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load restaurants from a YAML or JSON file",
	Long: `Creates every restaurant listed in the file on behalf of --owner
(default: the configured curator), including any recorded visits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := seedOwner
		if owner == "" {
			owner = cfg.CuratorEmail
		}
		if owner == "" {
			return errors.New("seed: --owner is required when CURATOR_EMAIL is not set")
		}

		f, err := os.Open(seedFile)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		defer f.Close()

		entries, err := parseSeed(f)
		if err != nil {
			return fmt.Errorf("seed %s: %w", seedFile, err)
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := runSeed(cmd.Context(), a.catalog, owner, entries)
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d of %d restaurants\n", created, len(entries))
		return err
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "seed file (YAML or JSON)")
	seedCmd.Flags().StringVar(&seedOwner, "owner", "", "email the restaurants are created for (default: curator)")
	_ = seedCmd.MarkFlagRequired("file")
}

type seedFileContent struct {
	Restaurants []seedRestaurant `yaml:"restaurants"`
}

type seedRestaurant struct {
	Name         string      `yaml:"name"`
	CuisineType  string      `yaml:"cuisineType"`
	LocationText string      `yaml:"locationText"`
	Description  string      `yaml:"description"`
	ImageURL     string      `yaml:"imageUrl"`
	Geo          *seedGeo    `yaml:"geo"`
	Visits       []seedVisit `yaml:"visits"`
}

type seedGeo struct {
	Coordinates []float64 `yaml:"coordinates"`
	PlaceName   string    `yaml:"placeName"`
}

type seedVisit struct {
	Date    string `yaml:"date"`
	Comment string `yaml:"comment"`
}

// parseSeed reads a document with a top-level "restaurants" list. JSON
// documents parse the same way since YAML is a superset.
func parseSeed(r io.Reader) ([]seedRestaurant, error) {
	var content seedFileContent
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&content); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty seed file")
		}
		return nil, err
	}
	return content.Restaurants, nil
}

func (s seedRestaurant) createInput() catalog.CreateInput {
	in := catalog.CreateInput{
		Name:         s.Name,
		CuisineType:  s.CuisineType,
		LocationText: s.LocationText,
		Description:  s.Description,
		ImageURL:     s.ImageURL,
	}
	if s.Geo != nil {
		in.Geo = &models.GeoPoint{
			Type:        models.GeoPointType,
			Coordinates: s.Geo.Coordinates,
			PlaceName:   s.Geo.PlaceName,
		}
	}
	return in
}

// runSeed creates the entries in order, stopping at the first failure.
// It returns how many were created.
func runSeed(ctx context.Context, svc *catalog.Service, owner string, entries []seedRestaurant) (int, error) {
	created := 0
	for i, e := range entries {
		r, err := svc.Create(ctx, owner, e.createInput())
		if err != nil {
			return created, fmt.Errorf("entry %d (%q): %w", i, e.Name, err)
		}
		if len(e.Visits) > 0 {
			visits := make([]catalog.VisitInput, 0, len(e.Visits))
			for _, v := range e.Visits {
				visits = append(visits, catalog.VisitInput{Date: v.Date, Comment: v.Comment})
			}
			if _, err := svc.ReplaceVisits(ctx, owner, r.ID, visits); err != nil {
				return created, fmt.Errorf("entry %d (%q) visits: %w", i, e.Name, err)
			}
		}
		created++
		logger.WithFields(logrus.Fields{"id": r.ID, "name": r.Name}).Debug("Seeded restaurant")
	}
	return created, nil
}
