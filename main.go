// Package main is the entry point for the gridrows application.
// It hosts both the API server and the client commands behind one binary.
package main

import (
	"gridrows/cmd"
)

func main() {
	cmd.Execute()
}
