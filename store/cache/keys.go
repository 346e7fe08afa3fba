package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Class groups key templates that share a prefix and a TTL.
type Class string

const (
	ClassKnowledge Class = "knowledge"
	ClassFlow      Class = "flow"
	ClassSearch    Class = "search"
	ClassChat      Class = "chat"
)

// Classes lists every class in a stable order.
var Classes = []Class{ClassKnowledge, ClassFlow, ClassSearch, ClassChat}

var classTTL = map[Class]time.Duration{
	ClassKnowledge: time.Hour,
	ClassFlow:      30 * time.Minute,
	ClassSearch:    5 * time.Minute,
	ClassChat:      30 * time.Minute,
}

// ParseClass maps a user supplied name onto a Class.
func ParseClass(name string) (Class, bool) {
	c := Class(strings.ToLower(strings.TrimSpace(name)))
	_, ok := classTTL[c]
	return c, ok
}

// TTL returns the expiry applied to every key of the class.
func (c Class) TTL() time.Duration {
	return classTTL[c]
}

// Pattern returns the glob matching every key of the class.
func (c Class) Pattern() string {
	return string(c) + ":*"
}

// Template is a key family. Parameter slots are written as %s.
type Template string

const (
	KeyKnowledgeCategories Template = "knowledge:categories"
	KeyKnowledgeItem       Template = "knowledge:item:%s"
	KeyFlowVersion         Template = "flow:version:%s"
	KeyFlowModule          Template = "flow:module:%s"
	KeyFlowArchitectures   Template = "flow:architectures"
	KeySearchResult        Template = "search:result:%s"
	KeySearchSuggestions   Template = "search:suggestions:%s"
	KeyChatSession         Template = "chat:session:%s"
)

// Format fills the template's parameter slots.
func (t Template) Format(args ...any) string {
	if len(args) == 0 {
		return string(t)
	}
	return fmt.Sprintf(string(t), args...)
}

// Class returns the class owning the template.
func (t Template) Class() Class {
	name, _, _ := strings.Cut(string(t), ":")
	return Class(name)
}

// ParamsHash digests request parameters into a fixed-width key segment.
// Keys are sorted and the query is normalized, so equivalent requests share a key.
func ParamsHash(params url.Values) string {
	canonical := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if k == "q" || k == "query" {
				v = NormalizeQuery(v)
			}
			canonical.Add(k, v)
		}
	}
	sum := md5.Sum([]byte(canonical.Encode()))
	return hex.EncodeToString(sum[:])
}

// NormalizeQuery lower-cases a query and collapses runs of whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
