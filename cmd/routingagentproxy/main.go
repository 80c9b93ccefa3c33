// Copyright sfrouting Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command routingagentproxy runs the host-side RoutingAgentProxy
// process, alongside every service host. Like cmd/routingagent it
// wires the ambient stack; the IPC client/server it would forward
// requests over is a collaborator contract (internal/collab) supplied
// by the embedding service host, not by this binary.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/sfrouting/core/internal/build"
	"github.com/sfrouting/core/internal/config"
	"github.com/sfrouting/core/internal/healthz"
	"github.com/sfrouting/core/internal/httpsvc"
	"github.com/sfrouting/core/internal/log"
	"github.com/sfrouting/core/internal/metrics"
	"github.com/sfrouting/core/internal/workgroup"
)

func main() {
	app := kingpin.New("routingagentproxy", "System service routing agent proxy.")
	app.HelpFlag.Short('h')

	serve := app.Command("serve", "Run the routing agent proxy.").Default()
	metricsAddr := serve.Flag("metrics-addr", "Address the metrics/health server binds to.").Default("127.0.0.1").String()
	metricsPort := serve.Flag("metrics-port", "Port the metrics/health server listens on.").Default("8098").Int()
	envPrefix := serve.Flag("env-prefix", "Prefix for the process's environment-supplied configuration.").Default("ROUTINGAGENTPROXY").String()

	version := app.Command("version", "Print build information and exit.")

	if cmd := kingpin.MustParse(app.Parse(os.Args[1:])); cmd == version.FullCommand() {
		fmt.Print(build.Print())
		return
	}

	logger := log.New()
	componentLog := log.ForComponent(logger, "routingagentproxy")

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		componentLog.Infof(format, args...)
	}))
	defer undo()
	if err != nil {
		componentLog.Errorf("failed to set GOMAXPROCS: %v", err)
	}

	cfg, err := config.Load(*envPrefix)
	if err != nil {
		componentLog.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}
	componentLog.Infof("loaded configuration: application=%q fabric-services=%v", cfg.SystemServiceApplicationName, cfg.FabricServiceNames)

	registry := prometheus.NewRegistry()
	metrics.NewMetrics(registry)

	var g workgroup.Group
	svc := &httpsvc.Service{
		Addr:        *metricsAddr,
		Port:        *metricsPort,
		FieldLogger: logger.WithField("context", "metrics"),
	}
	svc.Handle("/metrics", metrics.Handler(registry))
	svc.HandleFunc("/healthz", healthz.Healthz)
	g.AddContext(func(ctx context.Context) {
		if err := svc.Start(ctx); err != nil && ctx.Err() == nil {
			componentLog.Errorf("metrics server exited: %v", err)
		}
	})

	componentLog.Infof("routing agent proxy metrics listening on %s", net.JoinHostPort(*metricsAddr, strconv.Itoa(*metricsPort)))
	if err := g.Run(); err != nil {
		componentLog.Errorf("exiting: %v", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "routingagentproxy: stopped")
}
