package main

import (
	"context"

	"linkedin-insights/cmd/ctl/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
