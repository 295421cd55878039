/*
Package models defines the domain records shared by the registries, the
persistence layer, and the HTTP handlers.

Records carry both bson tags (document storage) and json tags (API payloads).
Conversations and groups hold raw user ids only; a referenced user may have
been deleted, and readers must tolerate that.
*/
package models

import (
	"sort"
	"strings"
	"time"
)

// PublicKey holds the three public parameters of a user's asymmetric key
// scheme. It is replaced wholesale on update, never merged field by field.
type PublicKey struct {
	P string `bson:"p" json:"p"`
	G string `bson:"g" json:"g"`
	E string `bson:"e" json:"e"`
}

// User is the identity record owned by the identity directory.
type User struct {
	ID         string     `bson:"_id" json:"id"`
	Email      string     `bson:"email" json:"email"`
	Name       string     `bson:"name" json:"name"`
	Credential string     `bson:"credential" json:"-"`
	PublicKey  *PublicKey `bson:"pub_key,omitempty" json:"pubKey,omitempty"`

	// AddresseeID points at the peer this user is currently addressing.
	// It is not validated against existing users.
	AddresseeID string `bson:"id_addressee,omitempty" json:"idAddressee,omitempty"`

	// GroupID points at the group the user most recently joined.
	GroupID string `bson:"id_group,omitempty" json:"idGroup,omitempty"`

	Online    bool      `bson:"online" json:"online"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserPatch describes a partial update to a user record. Nil fields are
// left untouched.
type UserPatch struct {
	Name        *string
	Credential  *string
	PublicKey   *PublicKey
	AddresseeID *string
	GroupID     *string
	Online      *bool
}

// ChatMessage is one entry in a pairwise conversation's message log.
type ChatMessage struct {
	Text   string `bson:"text" json:"text"`
	Sender string `bson:"sender" json:"sender"`
}

// Conversation is a pairwise chat between two users. Identity is the
// unordered participant pair: PairKey is derived from the two ids and is
// unique across the collection.
type Conversation struct {
	ID           string        `bson:"_id" json:"id"`
	UserA        string        `bson:"user_a" json:"userA"`
	UserB        string        `bson:"user_b" json:"userB"`
	PairKey      string        `bson:"pair_key" json:"-"`
	Messages     []ChatMessage `bson:"messages" json:"messages"`
	LastActivity time.Time     `bson:"last_activity" json:"lastActivity"`
	CreatedAt    time.Time     `bson:"created_at" json:"createdAt"`
}

// GroupMessage is one entry in a group's message log. Receiver names the
// member the encrypted payload is addressed to.
type GroupMessage struct {
	Text     string `bson:"text" json:"text"`
	Sender   string `bson:"sender" json:"sender"`
	Receiver string `bson:"receiver" json:"receiver"`
}

// Group is a multi-member chat. An unnamed group is identified by
// CanonicalKey (the sorted member-id set); a named group is identified by
// Name alone and carries no CanonicalKey.
type Group struct {
	ID           string         `bson:"_id" json:"id"`
	Name         string         `bson:"name,omitempty" json:"name,omitempty"`
	CanonicalKey string         `bson:"canonical_key,omitempty" json:"-"`
	Members      []string       `bson:"members" json:"members"`
	Messages     []GroupMessage `bson:"messages" json:"messages"`
	LastActivity time.Time      `bson:"last_activity" json:"lastActivity"`
	CreatedAt    time.Time      `bson:"created_at" json:"createdAt"`
}

// keyPartEscaper makes ids safe to join with ":". Ids are not validated at
// the API surface, so without escaping the pairs {"a:b", "c"} and
// {"a", "b:c"} would collapse into one key.
var keyPartEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

// PairKey returns the canonical identity key for an unordered user pair.
// Both argument orders yield the same key, and distinct pairs always yield
// distinct keys.
func PairKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return keyPartEscaper.Replace(userA) + ":" + keyPartEscaper.Replace(userB)
}

// CanonicalMembers returns a sorted, deduplicated copy of the given member
// ids. The input slice is not modified.
func CanonicalMembers(memberIDs []string) []string {
	out := make([]string, 0, len(memberIDs))
	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MemberKey returns the canonical identity key for a member set: the sorted,
// deduplicated ids joined with ":". Set-equal inputs in any order yield the
// same key, and distinct sets always yield distinct keys.
func MemberKey(memberIDs []string) string {
	members := CanonicalMembers(memberIDs)
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = keyPartEscaper.Replace(m)
	}
	return strings.Join(parts, ":")
}
