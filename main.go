package main

import "github.com/moodsync/mood-tools/cmd"

func main() {
	cmd.Execute()
}
