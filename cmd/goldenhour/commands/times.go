package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/config"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
	"git.home.luguber.info/inful/goldenhour/internal/suntimes"
)

// TimesCmd implements the 'times' command.
type TimesCmd struct {
	Latitude  *float64 `name:"lat" help:"Latitude in decimal degrees (default: configured static location)"`
	Longitude *float64 `name:"lon" help:"Longitude in decimal degrees (default: configured static location)"`
	Date      string   `short:"d" help:"First date, YYYY-MM-DD (default: today)"`
	Days      int      `short:"n" help:"Number of days to print" default:"1"`
	Timezone  string   `name:"tz" help:"IANA timezone for the printed instants (default: configured or local)"`
}

func (t *TimesCmd) Run(g *Global, root *CLI) error {
	coord, astro, err := t.resolve(root.Config)
	if err != nil {
		return err
	}
	if t.Timezone != "" {
		astro.Timezone = t.Timezone
	}
	zone, err := astro.Zone()
	if err != nil {
		return err
	}

	provider, err := suntimes.NewSunriseProvider(
		valueOr(astro.MorningElevation, suntimes.DefaultMorningElevation),
		valueOr(astro.EveningElevation, suntimes.DefaultEveningElevation),
		zone)
	if err != nil {
		return err
	}

	first, err := t.firstDate(zone)
	if err != nil {
		return err
	}
	days := max(t.Days, 1)

	w := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "DATE\tMORNING\tEVENING\t(%s, %s)\n", coord, zone)
	for i := range days {
		date := first.AddDate(0, 0, i)
		gh, err := provider.Compute(date, coord)
		switch {
		case errors.Is(err, suntimes.ErrUnavailable):
			_, _ = fmt.Fprintf(w, "%s\tunavailable\tunavailable\t\n", date.Format(time.DateOnly))
		case err != nil:
			return err
		default:
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n",
				date.Format(time.DateOnly),
				gh.MorningStart.Format("15:04:05"),
				gh.EveningStart.Format("15:04:05"))
		}
	}
	return w.Flush()
}

// resolve picks the coordinate from the flags, falling back to the config.
func (t *TimesCmd) resolve(path string) (geo.Coordinate, config.AstronomyConfig, error) {
	if t.Latitude != nil && t.Longitude != nil {
		c := geo.Coordinate{Latitude: *t.Latitude, Longitude: *t.Longitude}
		if !c.Valid() {
			return geo.Coordinate{}, config.AstronomyConfig{}, ferrors.ValidationError("coordinate out of range").
				WithContext("coordinate", c.String()).
				Build()
		}
		return c, config.AstronomyConfig{}, nil
	}
	if t.Latitude != nil || t.Longitude != nil {
		return geo.Coordinate{}, config.AstronomyConfig{}, ferrors.ValidationError("--lat and --lon must be given together").Build()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return geo.Coordinate{}, config.AstronomyConfig{}, err
	}
	if cfg.Location.Source != config.LocationStatic {
		return geo.Coordinate{}, config.AstronomyConfig{}, ferrors.ValidationError("no static location configured; pass --lat and --lon").
			WithContext("source", string(cfg.Location.Source)).
			Build()
	}
	return cfg.Location.Coordinate(), cfg.Astronomy, nil
}

func (t *TimesCmd) firstDate(zone *time.Location) (time.Time, error) {
	if t.Date == "" {
		return time.Now().In(zone), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, t.Date, zone)
	if err != nil {
		return time.Time{}, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid date").
			WithContext("date", t.Date).
			Build()
	}
	// Noon keeps the computation on the requested calendar day.
	return d.Add(12 * time.Hour), nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
