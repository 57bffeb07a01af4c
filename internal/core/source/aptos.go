package source

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

const (
	// AptosName identifies the chain node in logs and rule attribution.
	AptosName = "AptosNode"

	DefaultAptosNodeURL = "https://fullnode.testnet.aptoslabs.com/v1"
)

// DefaultReservedPrefixes are the framework namespaces on Aptos.
var DefaultReservedPrefixes = []string{"0x1::"}

// Aptos queries a chain node's REST API.
type Aptos struct {
	HTTP    HTTP
	NodeURL string

	// ReservedPrefixes mark resource types owned by the chain framework.
	ReservedPrefixes []string
}

// Resource is one entry of an account's resource list.
type Resource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Transaction is the subset of a committed transaction the payment gate reads.
type Transaction struct {
	Hash    string              `json:"hash"`
	Type    string              `json:"type"`
	Success bool                `json:"success"`
	Sender  string              `json:"sender"`
	Payload *TransactionPayload `json:"payload"`
}

// TransactionPayload is an entry function call.
type TransactionPayload struct {
	Type          string            `json:"type"`
	Function      string            `json:"function"`
	TypeArguments []string          `json:"type_arguments"`
	Arguments     []json.RawMessage `json:"arguments"`
}

func (a *Aptos) node() string {
	if a.NodeURL == "" {
		return DefaultAptosNodeURL
	}
	return a.NodeURL
}

// AccountResources lists the resources stored under address.
func (a *Aptos) AccountResources(ctx context.Context, address string) ([]Resource, error) {
	endpoint, err := joinURL(a.node(), "accounts", address, "resources")
	if err != nil {
		return nil, err
	}
	var resources []Resource
	if err := a.HTTP.getJSON(ctx, AptosName, endpoint, nil, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// TransactionByHash fetches a committed transaction. A missing transaction
// yields an error wrapping ErrNotFound.
func (a *Aptos) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	endpoint, err := joinURL(a.node(), "transactions", "by_hash", hash)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := a.HTTP.getJSON(ctx, AptosName, endpoint, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// OnChainData counts the non-framework resources at address.
func (a *Aptos) OnChainData(ctx context.Context, address string) (*core.OnChainData, error) {
	resources, err := a.AccountResources(ctx, address)
	if err != nil {
		return nil, err
	}
	prefixes := a.ReservedPrefixes
	if len(prefixes) == 0 {
		prefixes = DefaultReservedPrefixes
	}
	modules := CountModules(resources, prefixes)
	return &core.OnChainData{IsContract: modules > 0, ModulesCount: modules}, nil
}

// CountModules counts resources whose type is not under a reserved prefix.
func CountModules(resources []Resource, reserved []string) int {
	n := 0
	for _, r := range resources {
		if !IsReserved(r.Type, reserved) {
			n++
		}
	}
	return n
}

// IsReserved reports whether resourceType lives under one of the prefixes.
// Comparison ignores case.
func IsReserved(resourceType string, prefixes []string) bool {
	t := strings.ToLower(strings.TrimSpace(resourceType))
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}
