package main

import (
	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config    string `short:"c" type:"path" help:"Configuration file (defaults to $FORMSTATS_CONFIG_FILE or ./formstats.yaml)."`
	LogLevel  string `name:"log-level" help:"Override app.log_level (debug, info, warn, error)."`
	Transport string `help:"Override analytics.transport (google, http, mock)."`
}

type cli struct {
	Globals

	Serve     serveCmd     `cmd:"" help:"Serve the form analytics dashboard over HTTP."`
	Report    reportCmd    `cmd:"" help:"Run one report cycle and print totals, tables and form names."`
	Templates templatesCmd `cmd:"" help:"Validate a report-template manifest and list the resulting templates."`
}

func main() {
	var app cli
	ctx := kong.Parse(&app,
		kong.Name("formstats"),
		kong.Description("Form analytics dashboard for Google Analytics views."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&app.Globals)
	ctx.FatalIfErrorf(err)
}
