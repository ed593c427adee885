// Command insightsctl renders the dashboard views from the command line, exports the
// aggregated groups and imports datasets into PostgreSQL.
//
// Usage:
//
//	insightsctl view region --file data/marketing.json
//	insightsctl heatmap --renderer geo --metric roas
//	cat data.json | insightsctl view weekly --file - --format table
//	insightsctl import data/marketing.json
//	insightsctl export
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
