package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/novastreamlab/FHE-AI/internal/api/middleware"
	"github.com/novastreamlab/FHE-AI/internal/crypto"
)

func main() {
	keyB64 := flag.String("key", "", "Base64-encoded Ed25519 seed or private key")
	bodyFile := flag.String("body", "", "File containing request body (or use stdin)")
	flag.Parse()

	if *keyB64 == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -key <seed-base64> [-body <file>]")
		fmt.Fprintln(os.Stderr, "  Reads body from stdin if -body not specified")
		os.Exit(1)
	}

	priv, err := crypto.ParsePrivateKey(*keyB64)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var body []byte
	if *bodyFile != "" {
		body, err = os.ReadFile(*bodyFile)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		os.Exit(1)
	}

	nonceBytes := make([]byte, 12)
	rand.Read(nonceBytes)
	nonce := hex.EncodeToString(nonceBytes)

	timestamp := time.Now().UnixMilli()

	bodyHash := sha256.Sum256(body)
	signedData := crypto.SignaturePayload(hex.EncodeToString(bodyHash[:]), nonce, timestamp)

	pub := priv.Public().(ed25519.PublicKey)
	fmt.Fprintf(os.Stderr, "# caller %s\n", crypto.AddressOf(pub).Hex())
	fmt.Printf("%s: %s\n", middleware.HeaderKey, crypto.EncodePublicKey(pub))
	fmt.Printf("%s: %s\n", middleware.HeaderNonce, nonce)
	fmt.Printf("%s: %d\n", middleware.HeaderTimestamp, timestamp)
	fmt.Printf("%s: %s\n", middleware.HeaderSignature, crypto.Sign(priv, signedData))
}
