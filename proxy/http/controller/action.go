package controller

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/agrireg"
	"go.dedis.ch/agrireg/cli/node"
	ledgerctl "go.dedis.ch/agrireg/core/ledger/controller"
	"go.dedis.ch/agrireg/proxy"
	"go.dedis.ch/agrireg/proxy/http"
	"golang.org/x/xerrors"
)

var (
	defaultRetry = 10
	retryDelay   = 100 * time.Millisecond

	proxyFac = func(addr string) proxy.Proxy {
		return http.NewHTTP(addr)
	}

	registerer prometheus.Registerer = prometheus.DefaultRegisterer
)

// startAction is an action to start the proxy.
//
// - implements node.ActionTemplate
type startAction struct{}

// Execute implements node.ActionTemplate. It starts and injects the proxy http
// server.
func (a startAction) Execute(ctx node.Context) error {
	var current proxy.Proxy
	if ctx.Injector.Resolve(&current) == nil {
		return xerrors.New("proxy already started")
	}

	addr := ctx.Flags.String("addr")
	if addr == "" {
		var settings ledgerctl.Settings
		err := ctx.Injector.Resolve(&settings)
		if err != nil {
			return xerrors.Errorf("failed to resolve settings: %v", err)
		}

		addr = settings.ProxyAddr
	}

	proxyhttp := proxyFac(addr)

	go proxyhttp.Listen()

	for i := 0; i < defaultRetry && proxyhttp.GetAddr() == nil; i++ {
		time.Sleep(retryDelay)
	}

	if proxyhttp.GetAddr() == nil {
		proxyhttp.Stop()
		return xerrors.Errorf("failed to start proxy server")
	}

	ctx.Injector.Inject(proxyhttp)

	fmt.Fprintf(ctx.Out, "started proxy server on %s", proxyhttp.GetAddr().String())

	return nil
}

// promAction is an action to expose the metrics on the proxy.
//
// - implements node.ActionTemplate
type promAction struct{}

// Execute implements node.ActionTemplate. It registers the Prometheus handler.
func (a promAction) Execute(ctx node.Context) error {
	var proxyhttp proxy.Proxy

	err := ctx.Injector.Resolve(&proxyhttp)
	if err != nil {
		return xerrors.Errorf("failed to resolve the proxy: %v", err)
	}

	path := ctx.Flags.String("path")

	for _, c := range agrireg.PromCollectors {
		err = registerer.Register(c)
		if err != nil {
			fmt.Fprintf(ctx.Out, "ERROR: failed to register: %v\n", err)
		}
	}

	proxyhttp.RegisterHandler(path, promhttp.Handler().ServeHTTP)
	fmt.Fprintf(ctx.Out, "registered prometheus service on %q", path)

	return nil
}
