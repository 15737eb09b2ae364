package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
)

func main() {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Address:              %s\n", crypto.AddressOf(pub).Hex())
	fmt.Printf("Public key (base64):  %s\n", crypto.EncodePublicKey(pub))
	fmt.Printf("Seed (base64):        %s\n", base64.StdEncoding.EncodeToString(priv.Seed()))
}
