package main

import "github.com/rustyeddy/trendline/internal/cli"

func main() {
	cli.Execute()
}
