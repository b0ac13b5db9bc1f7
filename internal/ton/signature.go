package ton

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// VerifyMessageSignature checks an ed25519 signature over the exact raw message
// bytes. Key and signature are hex-encoded, matching how wallet keys are stored.
func VerifyMessageSignature(message []byte, signatureHex, publicKeyHex string) error {
	pubKey, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key size: %d", len(pubKey))
	}

	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}

	if !ed25519.Verify(pubKey, message, sig) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}
