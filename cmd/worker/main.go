package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage:
  worker analyze <snapshot.json|yaml> [outDir]
  worker analyze-db [outDir]
  worker schedule
  worker dot <snapshot.json|yaml> <out.dot>`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "analyze":
		err = RunAnalyze(ctx, os.Args[2:])
	case "analyze-db":
		err = RunAnalyzeDB(ctx, os.Args[2:])
	case "schedule":
		err = RunSchedule(ctx)
	case "dot":
		err = RunDOT(os.Args[2:])
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
	if err != nil {
		log.Fatal(err)
	}
}
