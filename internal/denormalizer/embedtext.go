package denormalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// embedding text labels, in concatenation order
const (
	labelTitle       = "Ausschreibung"
	labelDescription = "Beschreibung"
	labelBuyer       = "Auftraggeber"
	labelCity        = "Ort"
	labelCPV         = "CPV"
	labelNature      = "Art"
)

// BuildEmbeddingText derives the canonical labeled concatenation that gets
// vectorized. Absent fields are omitted entirely; the description is capped
// at maxDescRunes to bound embedding cost.
func BuildEmbeddingText(title, description, buyerName, buyerCity, cpv, nature string, maxDescRunes int) string {
	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}

	add(labelTitle, title)
	if description != "" {
		if r := []rune(description); maxDescRunes > 0 && len(r) > maxDescRunes {
			description = string(r[:maxDescRunes])
		}
		add(labelDescription, description)
	}
	add(labelBuyer, buyerName)
	add(labelCity, buyerCity)
	add(labelCPV, cpv)
	add(labelNature, nature)

	return strings.Join(parts, "\n")
}

// HashEmbeddingText fingerprints the embedding text; identical text always
// yields an identical hash, so re-embedding is only warranted on change.
func HashEmbeddingText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
