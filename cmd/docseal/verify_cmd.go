package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"docseal/internal/domain"
	"docseal/pkg/stamp"
)

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var pubkeyPath string
	var createdAtStr string
	var expiresAtStr string
	var clockSkewSeconds int

	fs.StringVar(&inPath, "in", "", "signed record JSON path")
	fs.StringVar(&pubkeyPath, "pubkey", "", "ed25519 public key PEM path")
	fs.StringVar(&createdAtStr, "key-created-at", "", "key validity window start (RFC3339)")
	fs.StringVar(&expiresAtStr, "key-expires-at", "", "key validity window end (RFC3339)")
	fs.IntVar(&clockSkewSeconds, "clock-skew-seconds", 0, "widen the validity window on both ends")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" || pubkeyPath == "" {
		fmt.Fprintln(os.Stderr, "verify requires --in and --pubkey")
		return 1
	}

	inBytes, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read record: %v\n", err)
		return 1
	}
	var record domain.CanonicalAttestationData
	if err := json.Unmarshal(inBytes, &record); err != nil {
		fmt.Fprintf(os.Stderr, "decode record: %v\n", err)
		return 1
	}

	pubBytes, err := os.ReadFile(pubkeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read public key: %v\n", err)
		return 1
	}

	opts := stamp.VerifyOptions{
		PublicKeyPEM: string(pubBytes),
		ClockSkew:    time.Duration(clockSkewSeconds) * time.Second,
	}
	if createdAtStr != "" {
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse key-created-at: %v\n", err)
			return 1
		}
		opts.CreatedAt = createdAt.UTC()
	}
	if expiresAtStr != "" {
		expiresAt, err := time.Parse(time.RFC3339, expiresAtStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse key-expires-at: %v\n", err)
			return 1
		}
		expiresAt = expiresAt.UTC()
		opts.ExpiresAt = &expiresAt
	}

	result, err := stamp.Verify(record, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify record: %v\n", err)
		return 1
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal result: %v\n", err)
		return 1
	}
	if err := writeOutput("", payload); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	if !result.IsValid {
		return 2
	}
	return 0
}
