package main

import (
	"log"

	"github.com/Enzooo97/ai-trading-bot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("could not start application: %v", err)
	}
}
