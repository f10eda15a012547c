package cqcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"[CQ:at,qq=123] hi", "[at.123] hi"},
		{"[CQ:reply,id=9][CQ:face,id=14]", "[reply.9][face.14]"},
		{"[CQ:image,file=a.png,url=http://x/a.png]", "[image.http://x/a.png]"},
		{"[CQ:image,file=a.png]", "[CQ:image,file=a.png]"},
		{"[CQ:poke,qq=1]", "[CQ:poke,qq=1]"},
		{"&#91;n.1&#93; &amp; more", "[n.1] & more"},
		{"[CQ:file,file_id=abc,name=x]", "[file.abc]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Transcode(tt.in), tt.in)
	}
}

func TestTranscodeRepeatedParamLastWins(t *testing.T) {
	assert.Equal(t, "[at.2]", Transcode("[CQ:at,qq=1,qq=2]"))
}
