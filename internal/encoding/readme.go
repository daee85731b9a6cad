package encoding

import (
	"path"
	"regexp"
	"strings"
)

var (
	// ![alt](target "title")
	markdownImage = regexp.MustCompile(`!\[([^\]]*)\]\(\s*([^)\s]+)((?:\s+"[^"]*")?)\s*\)`)
	// <img ... src="target" ...>
	htmlImage = regexp.MustCompile(`(?i)(<img\b[^>]*?\bsrc\s*=\s*)(["']?)([^"'\s>]+)(["']?)`)
	// [text](target "title"), where text may hold one inline image. A
	// match on a leading "!" is an image and is skipped.
	markdownLink = regexp.MustCompile(`(!?)\[((?:[^\[\]]|!\[[^\]]*\]\([^)]*\))*)\]\(\s*([^)\s]+)((?:\s+"[^"]*")?)\s*\)`)
	// [label]: target, on one line. Footnotes ([^label]: text) are prose.
	linkDefinition = regexp.MustCompile(`(?m)^( {0,3}\[[^\]^][^\]]*\]:[ \t]*)(\S+)`)

	scheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

	imageExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".svg": true, ".webp": true, ".avif": true, ".bmp": true, ".ico": true,
	}
)

// RawBaseURL is the root raw file contents are served from for a branch.
func RawBaseURL(owner, repo, branch string) string {
	return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/" + branch + "/"
}

// BlobBaseURL is the root files are browsed from for a branch.
func BlobBaseURL(owner, repo, branch string) string {
	return "https://github.com/" + owner + "/" + repo + "/blob/" + branch + "/"
}

// RewriteReadmeURLs makes the relative references of a README absolute.
// Images point at raw file contents, links at the browsable file. Absolute
// URLs, protocol-relative URLs, anchors and mailto links are left alone.
//
// Fenced code blocks are copied verbatim. Everything else is a textual
// transform, not a markdown parse: malformed or overlapping markup may
// produce a broken link.
func RewriteReadmeURLs(md, owner, repo, branch string) string {
	raw := RawBaseURL(owner, repo, branch)
	blob := BlobBaseURL(owner, repo, branch)

	var out, chunk strings.Builder
	flush := func() {
		out.WriteString(rewriteChunk(chunk.String(), raw, blob))
		chunk.Reset()
	}
	fence := ""
	for _, line := range strings.SplitAfter(md, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case fence == "" && (strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")):
			flush()
			fence = trimmed[:3]
			out.WriteString(line)
		case fence != "":
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			out.WriteString(line)
		default:
			chunk.WriteString(line)
		}
	}
	flush()
	return out.String()
}

// rewriteChunk rewrites a stretch of markdown holding no fenced code.
func rewriteChunk(md, raw, blob string) string {
	md = markdownImage.ReplaceAllStringFunc(md, func(m string) string {
		g := markdownImage.FindStringSubmatch(m)
		if IsAbsoluteURL(g[2]) {
			return m
		}
		return "![" + g[1] + "](" + resolve(raw, g[2]) + g[3] + ")"
	})
	md = htmlImage.ReplaceAllStringFunc(md, func(m string) string {
		g := htmlImage.FindStringSubmatch(m)
		if IsAbsoluteURL(g[3]) {
			return m
		}
		return g[1] + g[2] + resolve(raw, g[3]) + g[4]
	})
	md = markdownLink.ReplaceAllStringFunc(md, func(m string) string {
		g := markdownLink.FindStringSubmatch(m)
		if g[1] == "!" || IsAbsoluteURL(g[3]) {
			return m
		}
		return "[" + g[2] + "](" + resolve(blob, g[3]) + g[4] + ")"
	})
	md = linkDefinition.ReplaceAllStringFunc(md, func(m string) string {
		g := linkDefinition.FindStringSubmatch(m)
		if IsAbsoluteURL(g[2]) {
			return m
		}
		base := blob
		if isImage(g[2]) {
			base = raw
		}
		return g[1] + resolve(base, g[2])
	})
	return md
}

// IsAbsoluteURL reports whether target must be left untouched.
func IsAbsoluteURL(target string) bool {
	switch {
	case target == "":
		return true
	case strings.HasPrefix(target, "#"), strings.HasPrefix(target, "//"), strings.HasPrefix(target, "<"):
		return true
	default:
		return scheme.MatchString(target)
	}
}

// resolve joins a relative target onto base, keeping any query or fragment.
func resolve(base, target string) string {
	if IsAbsoluteURL(target) {
		return target
	}
	p, suffix := target, ""
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		p, suffix = target[:i], target[i:]
	}
	trailing := strings.HasSuffix(p, "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if trailing && p != "" {
		p += "/"
	}
	return base + p + suffix
}

func isImage(target string) bool {
	p := target
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return imageExtensions[strings.ToLower(path.Ext(p))]
}
