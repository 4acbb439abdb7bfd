package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "sign":
		return runSign(args[2:])
	case "verify":
		return runVerify(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "docseal"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s sign --in <attestation.json> --key <private.pem> --key-id <id> [--service-name <name>] [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify --in <record.json> --pubkey <public.pem> [--key-created-at <rfc3339>] [--key-expires-at <rfc3339>] [--clock-skew-seconds <n>]\n", name)
}
