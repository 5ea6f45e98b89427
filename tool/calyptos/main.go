package main

import (
	stdlog "log"
	"os"

	"github.com/eucalyptus/calyptos/tool/calyptos/cli"
	"github.com/eucalyptus/calyptos/tool/common"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	stdlog.SetOutput(log.StandardLogger().Writer())
	app := kingpin.New("calyptos", "Eucalyptus cloud deployment tool")
	if err := run(app); err != nil {
		log.Error(trace.DebugReport(err))
		common.PrintError(err)
		os.Exit(255)
	}
}

func run(app *kingpin.Application) error {
	calyptos := cli.RegisterCommands(app)
	return common.ProcessRunError(cli.Run(calyptos))
}
