package cache

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTemplateFormat(t *testing.T) {
	assert.Equal(t, "knowledge:categories", KeyKnowledgeCategories.Format())
	assert.Equal(t, "knowledge:item:42", KeyKnowledgeItem.Format("42"))
	assert.Equal(t, "flow:version:v2", KeyFlowVersion.Format("v2"))
	assert.Equal(t, "chat:session:abc", KeyChatSession.Format("abc"))
	assert.Equal(t, ClassFlow, KeyFlowModule.Class())
	assert.Equal(t, ClassSearch, KeySearchSuggestions.Class())
}

func TestClassTTL(t *testing.T) {
	assert.Equal(t, 3600*time.Second, ClassKnowledge.TTL())
	assert.Equal(t, 1800*time.Second, ClassFlow.TTL())
	assert.Equal(t, 300*time.Second, ClassSearch.TTL())
	assert.Equal(t, 1800*time.Second, ClassChat.TTL())
	assert.Equal(t, "search:*", ClassSearch.Pattern())
}

func TestParseClass(t *testing.T) {
	c, ok := ParseClass(" Knowledge ")
	assert.True(t, ok)
	assert.Equal(t, ClassKnowledge, c)

	_, ok = ParseClass("all")
	assert.False(t, ok)
}

func TestParamsHash(t *testing.T) {
	a := ParamsHash(url.Values{"q": {"Auto  White Balance"}, "type": {"all"}, "limit": {"20"}})
	b := ParamsHash(url.Values{"limit": {"20"}, "type": {"all"}, "q": {"auto white balance"}})
	c := ParamsHash(url.Values{"q": {"auto white balance"}, "type": {"flow"}, "limit": {"20"}})

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "isp pipeline", NormalizeQuery("  ISP \t Pipeline\n"))
	assert.Equal(t, "", NormalizeQuery("   "))
}
