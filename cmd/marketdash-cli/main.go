// Command marketdash-cli queries market data through the configured gateway
// or a running marketdash-server.
//
// Usage:
//
//	marketdash-cli quote SPY QQQ
//	marketdash-cli search apple
//	marketdash-cli detail AAPL
//	marketdash-cli snapshot --server http://localhost:8080 --watch
package main

import (
	"os"

	"marketdash/cmd/marketdash-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
