// Package main is the entry point for the car-deal-tracker binary.
package main

import (
	"github.com/donaldgifford/car-deal-tracker/cmd/car-deal-tracker/cmd"
)

func main() {
	cmd.Execute()
}
