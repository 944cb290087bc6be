// Command protocolsd runs the portfolio multi-protocol daemon: Gemini,
// Gopher, Finger, Telnet, SSH, QOTD and its HTTP control endpoint, all
// serving the same SiteData snapshot.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitational/kingpin"
	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	protocols "github.com/mat-1/protocols"
	"github.com/mat-1/protocols/lib/config"
	"github.com/mat-1/protocols/lib/logutils"
	"github.com/mat-1/protocols/lib/service"
	"github.com/mat-1/protocols/lib/sitedata"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logutils.FatalError(err)
	}
}

func run(args []string) error {
	app := kingpin.New("protocolsd", "Serves a personal portfolio over Gemini, Gopher, Finger, Telnet, SSH and QOTD.")

	var (
		hostname string
		dataDir  string
		debug    bool
	)
	app.Flag("hostname", "Canonical hostname this server identifies itself as.").StringVar(&hostname)
	app.Flag("data-dir", "Directory holding host keys, certificates and cached site data.").Default("data").StringVar(&dataDir)
	app.Flag("debug", "Bind every listener's debug-mode port and enable verbose logging.").BoolVar(&debug)

	startCmd := app.Command("start", "Start the daemon.").Default()

	selected, err := app.Parse(args)
	if err != nil {
		return trace.Wrap(err)
	}

	if debug {
		logutils.Init(logutils.ForDaemon, logrus.DebugLevel)
	} else {
		logutils.Init(logutils.ForDaemon, logrus.InfoLevel)
	}

	switch selected {
	case startCmd.FullCommand():
		return onStart(hostname, dataDir, debug)
	}
	return trace.BadParameter("unknown command %q", selected)
}

func onStart(hostname, dataDir string, debug bool) error {
	cfg := &config.Config{Hostname: hostname, DataDir: dataDir, Debug: debug}
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return trace.Wrap(err)
	}

	data, err := sitedata.Load(cfg.DataPath(protocols.SiteDataCacheFile))
	if err != nil {
		return trace.Wrap(err, "loading site data")
	}

	process, err := service.NewProcess(cfg, data)
	if err != nil {
		return trace.Wrap(err, "initializing process")
	}
	if err := process.Start(); err != nil {
		return trace.Wrap(err, "starting listeners")
	}

	fmt.Fprintf(os.Stderr, "protocolsd serving %q from %q\n", cfg.Hostname, cfg.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}
