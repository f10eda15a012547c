// Package cqcode rewrites inbound OneBot CQ codes into the bracket tokens
// used by keywords and templates.
package cqcode

import (
	"regexp"
	"strings"
)

var (
	codeRe  = regexp.MustCompile(`\[CQ:(\w+),(.*?)\]`)
	paramRe = regexp.MustCompile(`(\w+)=([^,]+)`)

	entities = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&amp;", "&")
)

// keptParams names the one parameter each code type is reduced to.
var keptParams = map[string]string{
	"reply":   "id",
	"at":      "qq",
	"face":    "id",
	"image":   "url",
	"video":   "url",
	"record":  "url",
	"forward": "id",
	"file":    "file_id",
	"json":    "data",
}

// Transcode turns [CQ:at,qq=1] into [at.1]. Codes of other types, or missing
// their parameter, are kept verbatim. HTML entities are unescaped afterwards.
func Transcode(text string) string {
	text = codeRe.ReplaceAllStringFunc(text, func(code string) string {
		m := codeRe.FindStringSubmatch(code)

		key, ok := keptParams[m[1]]
		if !ok {
			return code
		}

		value, found := "", false
		for _, param := range paramRe.FindAllStringSubmatch(m[2], -1) {
			if param[1] == key {
				value, found = param[2], true
			}
		}

		if !found {
			return code
		}

		return "[" + m[1] + "." + value + "]"
	})

	return entities.Replace(text)
}
