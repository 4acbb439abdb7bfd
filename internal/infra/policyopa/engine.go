package policyopa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"docseal/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.docseal.policy.result"

// Engine evaluates an acceptance policy over verification results. The
// policy decides nothing about signature validity; it only annotates
// already-verified attestations (for example flagging providers an
// installation does not accept).
type Engine struct {
	query      rego.PreparedEvalQuery
	bundleHash string
	bundleID   string
}

func NewEngineFromBundlePath(ctx context.Context, bundlePath string, bundleID string) (*Engine, error) {
	bundleHash, err := computeBundleHash(bundlePath)
	if err != nil {
		return nil, err
	}

	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}

	return &Engine{
		query:      prepared,
		bundleHash: bundleHash,
		bundleID:   bundleID,
	}, nil
}

func (e *Engine) BundleHash() string {
	return e.bundleHash
}

func (e *Engine) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyReceipt, error) {
	if e == nil {
		return nil, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, errors.New("empty policy result")
	}
	receipt, err := decodeReceipt(results[0].Expressions[0].Value)
	if err != nil {
		return nil, err
	}
	if e.bundleID != "" {
		receipt["bundleId"] = e.bundleID
	}
	receipt["bundleHash"] = e.bundleHash
	return receipt, nil
}

func decodeReceipt(value any) (domain.PolicyReceipt, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var receipt domain.PolicyReceipt
	if err := json.Unmarshal(payload, &receipt); err != nil {
		return nil, err
	}
	if receipt == nil {
		receipt = domain.PolicyReceipt{}
	}
	return receipt, nil
}

// computeBundleHash hashes every regular file under the bundle path in
// sorted order so the receipt pins the exact policy that ran.
func computeBundleHash(bundlePath string) (string, error) {
	var files []string
	err := filepath.WalkDir(bundlePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	digest := sha256.New()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(bundlePath, path)
		if err != nil {
			rel = path
		}
		digest.Write([]byte(rel))
		digest.Write([]byte{0})
		digest.Write(data)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
