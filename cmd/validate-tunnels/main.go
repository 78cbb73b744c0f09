package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/webhook-relay/tunnel"
)

/* validate-tunnels - Standalone CLI tool to validate tunnels.yaml
 * Usage: go run cmd/validate-tunnels/main.go [tunnels.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	tunnelsFile := "tunnels.yaml"
	if len(os.Args) > 1 {
		tunnelsFile = os.Args[1]
	}

	fmt.Printf("Validating tunnels file: %s\n", tunnelsFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := tunnel.NewLoader()
	if err := loader.Load(tunnelsFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loaded := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d tunnel(s):\n", len(loaded))

	for i, t := range loaded {
		fmt.Printf("\n%d. Tunnel: %s\n", i+1, t.Name)
		fmt.Printf("   API key:         %s\n", mask(t.APIKey))
		fmt.Printf("   Allowed methods: %s\n", listOrAll(t.AllowedMethods))
		fmt.Printf("   Allowed paths:   %s\n", listOrAll(patterns(t.AllowedPaths)))
		if len(t.BlockedPaths) > 0 {
			fmt.Printf("   Blocked paths:   %s\n", strings.Join(patterns(t.BlockedPaths), ", "))
		}
	}

	fmt.Printf("\n✓ All tunnels are valid!\n")
	os.Exit(0)
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "…" + key[len(key)-4:]
}

func listOrAll(items []string) string {
	if len(items) == 0 {
		return "(all)"
	}
	return strings.Join(items, ", ")
}

// patterns strips the anchoring added when the tunnel was compiled
func patterns[T interface{ String() string }](compiled []T) []string {
	out := make([]string, 0, len(compiled))
	for _, re := range compiled {
		p := strings.TrimSuffix(strings.TrimPrefix(re.String(), "^(?:"), ")$")
		out = append(out, p)
	}
	return out
}
