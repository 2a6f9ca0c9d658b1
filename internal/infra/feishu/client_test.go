package feishu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTextContent(t *testing.T) {
	mentions := map[string]string{"@_user_1": "Bob"}

	assert.Equal(t, "ping @Bob", parseTextContent(`{"text":"ping @_user_1"}`, mentions))
	assert.Equal(t, "", parseTextContent(`not json`, mentions))
}

func TestParsePostContent(t *testing.T) {
	content := `{
		"title": "Release",
		"content": [
			[{"tag":"text","text":"ready for "},{"tag":"at","user_id":"ou_1"}],
			[{"tag":"img","image_key":"k"}],
			[{"tag":"a","text":"notes","href":"https://example.com"},{"tag":"at","user_id":"ou_2"}]
		]
	}`
	mentions := map[string]string{"ou_1": "Carol"}

	assert.Equal(t, "Release\nready for @Carol\nnotes@ou_2", parsePostContent(content, mentions))
	assert.Equal(t, "", parsePostContent(`[`, nil))
}

func TestDeref(t *testing.T) {
	s := "x"
	assert.Equal(t, "x", deref(&s))
	assert.Equal(t, "", deref(nil))
}
