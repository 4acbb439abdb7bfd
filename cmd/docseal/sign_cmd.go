package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"docseal/internal/domain"
	"docseal/pkg/stamp"
)

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var keyPath string
	var keyID string
	var serviceName string
	var outPath string

	fs.StringVar(&inPath, "in", "", "attestation package JSON path")
	fs.StringVar(&keyPath, "key", "", "ed25519 private key PEM path")
	fs.StringVar(&keyID, "key-id", "", "key id to embed in the record")
	fs.StringVar(&serviceName, "service-name", "", "service name (default docseal)")
	fs.StringVar(&outPath, "out", "", "output record path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" || keyPath == "" || keyID == "" {
		fmt.Fprintln(os.Stderr, "sign requires --in, --key, and --key-id")
		return 1
	}

	inBytes, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read attestation: %v\n", err)
		return 1
	}
	var pkg domain.AttestationPackage
	if err := json.Unmarshal(inBytes, &pkg); err != nil {
		fmt.Fprintf(os.Stderr, "decode attestation: %v\n", err)
		return 1
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read private key: %v\n", err)
		return 1
	}

	record, err := stamp.Sign(pkg, stamp.SignOptions{
		PrivateKeyPEM: string(keyBytes),
		KeyID:         keyID,
		ServiceName:   serviceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign attestation: %v\n", err)
		return 1
	}

	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal record: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
