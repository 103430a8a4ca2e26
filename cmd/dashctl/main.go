// Command dashctl computes the dashboard views offline and prints, exports or
// renders them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}
