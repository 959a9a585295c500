package main

import (
	"kingo-scraper/cmd/kingo-cli/commands"
	"kingo-scraper/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
