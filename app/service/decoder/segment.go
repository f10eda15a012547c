package decoder

import (
	"encoding/json"
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`\[.*?\]`)

var partAliases = map[string]string{
	"text":   PartText,
	"文本":     PartText,
	"face":   PartFace,
	"表情":     PartFace,
	"image":  PartImage,
	"图片":     PartImage,
	"at":     PartAt,
	"艾特":     PartAt,
	"reply":  PartReply,
	"回复":     PartReply,
	"video":  PartVideo,
	"视频":     PartVideo,
	"record": PartRecord,
	"语音":     PartRecord,
	"json":   PartJSON,
	"music":  PartMusic,
	"share":  PartShare,
}

// segment splits text on [type.payload] tokens. Whitespace-only runs are
// dropped, unknown tokens stay literal text.
func segment(text string) []Part {
	var (
		parts []Part
		last  int
	)

	for _, loc := range tokenRe.FindAllStringIndex(text, -1) {
		parts = appendText(parts, text[last:loc[0]])
		parts = appendToken(parts, text[loc[0]:loc[1]])
		last = loc[1]
	}

	return appendText(parts, text[last:])
}

func appendText(parts []Part, run string) []Part {
	if strings.TrimSpace(run) == "" {
		return parts
	}

	return append(parts, Part{Type: PartText, Content: run})
}

func appendToken(parts []Part, token string) []Part {
	kind, payload, ok := strings.Cut(token[1:len(token)-1], ".")
	if !ok {
		return append(parts, Part{Type: PartText, Content: token})
	}

	partType, known := partAliases[kind]
	if !known {
		return append(parts, Part{Type: PartText, Content: token})
	}

	switch partType {
	case PartText:
		return append(parts, Part{Type: PartText, Content: payload})
	case PartFace, PartReply:
		return append(parts, Part{Type: partType, ID: payload})
	case PartImage, PartVideo, PartRecord, PartShare:
		return append(parts, Part{Type: partType, URL: payload})
	case PartAt:
		return append(parts, Part{Type: PartAt, QQ: payload})
	case PartJSON:
		if !json.Valid([]byte(payload)) {
			return append(parts, Part{Type: PartText, Content: payload})
		}
		return append(parts, Part{Type: PartJSON, Data: json.RawMessage(payload)})
	case PartMusic:
		title, url, found := strings.Cut(payload, ".")
		if !found || title == "" || url == "" {
			return parts
		}
		return append(parts, Part{Type: PartMusic, Title: title, URL: url})
	}

	return parts
}

func shape(parts []Part) Result {
	switch {
	case len(parts) == 0:
		return Result{Type: ResultText}
	case len(parts) == 1 && parts[0].Type == PartText:
		return Result{Type: ResultText, Content: parts[0].Content}
	default:
		return Result{Type: ResultMixed, Messages: parts}
	}
}
