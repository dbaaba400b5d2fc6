package main

import "github.com/l10nmetrics/fluentwalk/cmd"

func main() {
	cmd.Run()
}
