// Package main is the entry point for the pgaweekly CLI, which refreshes
// tournament results and skill profiles for a PGA Tour field every week.
package main

import "github.com/pable/pgaweekly/cmd"

func main() {
	cmd.Execute()
}
