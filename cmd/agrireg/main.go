// Package main implements the node of the agricultural data registry.
//
// Unix example:
//
//	# Start a node with the genesis of the registry.
//	agrireg --config /tmp/node1 start --genesis genesis.yml
//
//	# Register a submission of a verified authority.
//	agrireg --config /tmp/node1 agridata register --caller SP2ALICE \
//	  --hash abc --metadata "NDVI survey" --location "Iowa, US" --crop corn \
//	  --capture-date 1650000000 --price 500 --data-type ndvi --resolution 10 \
//	  --lat 41.878 --lon -93.097 --sensor satellite --format geojson
//
//	# Serve the queries and the metrics over http.
//	agrireg --config /tmp/node1 proxy start --addr 127.0.0.1:8080
//	agrireg --config /tmp/node1 agridata serve
//	agrireg --config /tmp/node1 proxy prom
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/agrireg/cli/node"
	agridata "go.dedis.ch/agrireg/contracts/agridata/controller"
	authority "go.dedis.ch/agrireg/contracts/authority/controller"
	ledger "go.dedis.ch/agrireg/core/ledger/controller"
	proxy "go.dedis.ch/agrireg/proxy/http/controller"
)

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{Writer: os.Stdout})
}

func runWithCfg(args []string, cfg config) error {
	builder := node.NewBuilderWithCfg(
		cfg.Channel,
		cfg.Writer,
		ledger.NewController(),
		authority.NewController(),
		agridata.NewController(),
		proxy.NewController(),
	)

	app := builder.Build()

	return app.Run(args)
}
