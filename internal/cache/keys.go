package cache

import "fmt"

// Cache key namespaces. Keys are "<namespace>:<user_id>" so a user's entries
// can be invalidated by prefix.
const (
	NamespaceProfile         = "profile"
	NamespaceJourney         = "journey"
	NamespaceMastery         = "mastery"
	NamespacePerformance     = "performance"
	NamespaceRecommendations = "recommendations"
)

// AllNamespaces lists every namespace carrying per-user entries
var AllNamespaces = []string{
	NamespaceProfile,
	NamespaceJourney,
	NamespaceMastery,
	NamespacePerformance,
	NamespaceRecommendations,
}

// Key builds a per-user cache key. The same string doubles as the
// invalidation prefix for that namespace and user.
func Key(namespace, userID string) string {
	return fmt.Sprintf("%s:%s", namespace, userID)
}
