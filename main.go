/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/tirecast/cmd"

func main() {
	cmd.Execute()
}
