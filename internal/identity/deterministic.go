package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// PostUUID derives the stable identifier for a post from its content-relative path.
func PostUUID(path string) uuid.UUID {
	return UUID("postpress:post:" + strings.TrimSpace(path))
}

// ThemeUUID derives the stable identifier for a theme from its directory path.
func ThemeUUID(themePath string) uuid.UUID {
	return UUID("postpress:theme:" + strings.TrimSpace(themePath))
}
