package main

import (
	"flag"
	"fmt"
	"os"

	"nurseconnect-registration/internal/auth"
	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/hashing"
)

// tokenhash prints an API_TOKENS entry for a new referral API token.
//
//	tokenhash -user rapidpro -token <secret>
func main() {
	user := flag.String("user", "", "username the token authenticates as")
	token := flag.String("token", "", "plaintext token")
	perms := flag.String("perms", auth.PermAddReferralLink, "permissions, separated by |")
	flag.Parse()

	if *user == "" || *token == "" {
		flag.Usage()
		os.Exit(2)
	}

	hasher := hashing.NewHasher(config.LoadConfig())
	result, err := hasher.HashToken(*token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s:%s:%s\n", *user, result.Encode(), *perms)
}
