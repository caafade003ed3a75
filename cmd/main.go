package main

import (
	"log"

	"olympia-live-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
