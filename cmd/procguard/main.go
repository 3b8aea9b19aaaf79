package main

import (
	"github.com/Paintersrp/procguard/internal/cli"
	"github.com/Paintersrp/procguard/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
