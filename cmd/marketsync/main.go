// Command marketsync reconciles a Billz POS catalog against Yandex Market
// and Uzum listings, pushing quantity and price updates back to the
// marketplaces.
package main

import (
	"os"

	"github.com/toparuz/marketsync/cmd/marketsync/app"
)

func main() {
	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}
