package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// edgeNamespace scopes UUIDv5 edge ids so they never collide with other
// UUIDv5 users of the same store.
var edgeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lexgraph/edge"))

var communityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lexgraph/community"))

// NormalizeText lower-cases s, trims it and collapses inner whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// EntityID is the stable identity of a canonical entity: the first 32 hex
// characters of SHA-256 over "CATEGORY|normalized text", prefixed with
// "ent_". Stores use it as the node upsert key, so it must never change.
func EntityID(t EntityType, text string) string {
	sum := sha256.Sum256([]byte(string(t.Category()) + "|" + NormalizeText(text)))
	return "ent_" + hex.EncodeToString(sum[:])[:32]
}

// EdgeKey returns the identity triple of an edge as one string. Symmetric
// relation types order their endpoints so both directions share a key.
func EdgeKey(source, target string, r RelationType) string {
	if r.IsSymmetric() && target < source {
		source, target = target, source
	}
	return source + "|" + target + "|" + string(r)
}

// EdgeID derives the edge upsert key from its identity triple.
func EdgeID(source, target string, r RelationType) string {
	return uuid.NewSHA1(edgeNamespace, []byte(EdgeKey(source, target, r))).String()
}

// CommunityID derives a community id from its level resolution and its
// member set, so recomputing the same partition yields the same ids.
func CommunityID(resolution float64, members []string) string {
	sorted := append([]string(nil), members...)
	sortStrings(sorted)
	key := formatFloat(resolution) + "|" + strings.Join(sorted, ",")
	return uuid.NewSHA1(communityNamespace, []byte(key)).String()
}
