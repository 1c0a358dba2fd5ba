// Command admintoken mints an admin API token together with the bcrypt
// hash the server expects in ADMIN_TOKEN_HASH. The plaintext is printed
// once and never stored.
package main

import (
	"flag"
	"fmt"
	"os"

	"custos/pkg/platform/secrets"
)

func main() {
	existing := flag.String("token", "", "hash this token instead of generating a new one")
	flag.Parse()

	token := *existing
	if token == "" {
		var err error
		token, err = secrets.Generate()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate token:", err)
			os.Exit(1)
		}
	}

	hash, err := secrets.Hash(token)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash token:", err)
		os.Exit(1)
	}

	fmt.Println("Admin token (give to operators, shown once):")
	fmt.Println("  " + token)
	fmt.Println()
	fmt.Println("Server environment:")
	fmt.Println("  ADMIN_TOKEN_HASH='" + hash + "'")
}
