// Package controller implements a controller to start the proxy of a node and
// expose the metrics on it.
package controller

import (
	"go.dedis.ch/agrireg/cli"
	"go.dedis.ch/agrireg/cli/node"
	"go.dedis.ch/agrireg/proxy"
)

const defaultProm = "/metrics"

// NewController returns a new minimal initializer
func NewController() node.Initializer {
	return minimal{}
}

// minimal is an initializer with the minimum set of commands. Indeed it only
// creates and injects a new client proxy
//
// - implements node.Initializer
type minimal struct{}

// SetCommands implements node.Initializer. It sets the commands to start the
// proxy and to register the metrics handler.
func (m minimal) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("proxy")
	cmd.SetDescription("manage the http proxy of the node")

	sub := cmd.SetSubCommand("start")
	sub.SetDescription("start the proxy http server")
	sub.SetFlags(cli.StringFlag{
		Name:     "addr",
		Required: false,
		Usage:    "the address of the http server, defaults to AGRIREG_PROXY_ADDR",
	})
	sub.SetAction(builder.MakeAction(startAction{}))

	sub = cmd.SetSubCommand("prom")
	sub.SetDescription("registers the collectors and starts a prometheus handler. " +
		"Will panic if the path is used more than once.")
	sub.SetFlags(cli.StringFlag{
		Name:     "path",
		Required: false,
		Usage:    "the handler path",
		Value:    defaultProm,
	})
	sub.SetAction(builder.MakeAction(promAction{}))
}

// OnStart implements node.Initializer.
func (m minimal) OnStart(ctx cli.Flags, inj node.Injector) error {
	return nil
}

// OnStop implements node.Initializer. It stops the http server.
func (m minimal) OnStop(inj node.Injector) error {
	var p proxy.Proxy
	err := inj.Resolve(&p)
	if err == nil {
		p.Stop()
	}

	return nil
}
