// Package main runs the end-to-end economy scenarios and exits nonzero
// on any failed check. Useful as a smoke gate before deployment.
package main

import (
	"fmt"
	"os"

	"github.com/halvard-m/starlanes/server/test"
)

func main() {
	fmt.Println("STARLANES - SCENARIO SUITE")
	fmt.Println("==========================")

	fmt.Println("\nRunning scenario: Silicon Run...")
	silicon := test.NewSiliconRunTest()
	silicon.Run()

	results := silicon.GetResults()
	passed, failed := 0, 0
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
			fmt.Printf("FAIL [%s] %s: %s\n", r.ScenarioName, r.Check, r.Detail)
		}
	}

	fmt.Println("\n==========================")
	fmt.Printf("Passed: %d\nFailed: %d\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}
