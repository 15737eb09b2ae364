package crypto

import (
	"github.com/novastreamlab/FHE-AI/internal/models"
)

// AuthorizationDomain separates decrypt authorizations from other signed data.
const AuthorizationDomain = "fheai/UserDecryptRequestVerification/v1"

// AuthorizationDigest is the digest a user signs to authorize a batch decrypt.
func AuthorizationDigest(auth models.DecryptAuthorization) []byte {
	parts := [][]byte{
		[]byte(AuthorizationDomain),
		Keccak256([]byte(auth.PublicKey)),
	}
	for _, c := range auth.ContractAddresses {
		parts = append(parts, c[:])
	}
	parts = append(parts,
		uint64Bytes(uint64(auth.StartTimestamp)),
		uint64Bytes(uint64(auth.DurationDays)),
	)
	return Keccak256(parts...)
}
