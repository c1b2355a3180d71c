// Command totpkey generates key material for the two-factor service.
//
// By default it prints a base64 AES-256 key for TOTP_ENCRYPTION_KEY.
// With -secret it prints a Base32 TOTP secret instead, and with -issuer and
// -account also the matching otpauth:// URI.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dmitrymomot/twofactor/pkg/totp"
)

func main() {
	secret := flag.Bool("secret", false, "generate a TOTP secret instead of an encryption key")
	issuer := flag.String("issuer", "", "issuer for the otpauth URI (with -secret)")
	account := flag.String("account", "", "account name for the otpauth URI (with -secret)")
	flag.Parse()

	if !*secret {
		encodedKey, err := totp.GenerateEncodedEncryptionKey()
		if err != nil {
			log.Fatalf("Failed to generate encoded encryption key: %v", err)
		}
		fmt.Printf("Generated Encoded Encryption Key (for TOTP_ENCRYPTION_KEY env var): \n———\n%s\n———\n", encodedKey)
		return
	}

	key, err := totp.GenerateSecretKey()
	if err != nil {
		log.Fatalf("Failed to generate TOTP secret: %v", err)
	}
	fmt.Println(key)

	if *issuer != "" && *account != "" {
		uri, err := totp.GetTOTPURI(totp.TOTPParams{Secret: key, AccountName: *account, Issuer: *issuer})
		if err != nil {
			log.Fatalf("Failed to build key URI: %v", err)
		}
		fmt.Println(uri)
	}
}
