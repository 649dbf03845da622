package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		runCall()
		return
	}

	switch os.Args[1] {
	case "call":
		runCall()
	case "history":
		runHistory()
	case "version":
		fmt.Println("voicecall " + version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "usage: voicecall [call|history|version]")
		os.Exit(1)
	}
}

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
