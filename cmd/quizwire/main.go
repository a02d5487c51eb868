package main

import (
	"github.com/spf13/cobra"

	"github.com/tmorrow-dev/quizwire/internal/cli"
)

func main() {
	cobra.CheckErr(cli.New().Execute())
}
