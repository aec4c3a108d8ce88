package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/geo"
)

var (
	citiesNearLat float64
	citiesNearLng float64
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List the cities available for coordinate-anchored searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := geo.Load()
		if err != nil {
			return eris.Wrap(err, "load city index")
		}

		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			city, distKm := idx.Nearest(citiesNearLat, citiesNearLng)
			fmt.Printf("%s, %s (%.1f km away)\n", city.Name, city.Region, distKm)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CITY\tREGION\tLAT\tLNG")
		for _, c := range idx.Cities() {
			fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\n", c.Name, c.Region, c.Lat, c.Lng)
		}
		return w.Flush()
	},
}

func init() {
	citiesCmd.Flags().Float64Var(&citiesNearLat, "lat", 0, "find the nearest known city to this latitude")
	citiesCmd.Flags().Float64Var(&citiesNearLng, "lng", 0, "find the nearest known city to this longitude")
	rootCmd.AddCommand(citiesCmd)
}
