package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainOffer = "waterfall/offer/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OfferID computes the content-addressed ID of the offer made to a carrier
// for a load at a tier. The same inputs always produce the same ID, so an
// offer can be recognized across restarts.
func OfferID(loadID, carrierID string, tierRank int) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"load_id":    loadID,
		"carrier_id": carrierID,
		"tier_rank":  tierRank,
	})
	if err != nil {
		return "", fmt.Errorf("OfferID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOffer, canonical), nil
}
