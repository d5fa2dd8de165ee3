// Package autofix applies conservative fixups to generated code blocks.
package autofix

import (
	"regexp"
	"strings"
)

var (
	htmlBlock  = regexp.MustCompile("(?is)```(html)?\n(.*?)```")
	reactBlock = regexp.MustCompile("(?is)```(jsx|tsx)\n(.*?)```")
	cssBlock   = regexp.MustCompile("(?is)```css\n(.*?)```")

	inlineHandlers = regexp.MustCompile(`(?i)on[a-z]+\s*=\s*("[^"]*"|'[^']*')`)
	htmlPair       = regexp.MustCompile(`(?is)<html.*</html>`)
	bodyPair       = regexp.MustCompile(`(?is)<body.*</body>`)
	charsetRule    = regexp.MustCompile(`(?i)@charset[^;]+;`)

	defaultExport = regexp.MustCompile(`(?m)export\s+default\s+`)
	appFunc       = regexp.MustCompile(`function\s+App\s*\(`)
	constComp     = regexp.MustCompile(`const\s+([A-Z][A-Za-z0-9_]*)\s*=\s*\(`)
	rawMarkup     = regexp.MustCompile(`<[A-Za-z]`)
)

// Fix normalizes fenced code blocks in a model response. It is pure and
// total: any internal failure returns the input unchanged.
func Fix(raw string) (out string) {
	defer func() {
		if recover() != nil {
			out = raw
		}
	}()

	if strings.TrimSpace(raw) == "" {
		return raw
	}

	out = htmlBlock.ReplaceAllStringFunc(raw, func(m string) string {
		sub := htmlBlock.FindStringSubmatch(m)
		body := strings.TrimSpace(sub[2])
		return "```html\n" + ensureHTMLSkeleton(stripInlineHandlers(body)) + "\n```"
	})
	out = reactBlock.ReplaceAllStringFunc(out, func(m string) string {
		sub := reactBlock.FindStringSubmatch(m)
		return "```" + sub[1] + "\n" + ensureDefaultExport(sub[2]) + "\n```"
	})
	out = cssBlock.ReplaceAllStringFunc(out, func(m string) string {
		sub := cssBlock.FindStringSubmatch(m)
		return "```css\n" + strings.TrimSpace(charsetRule.ReplaceAllString(sub[1], "")) + "\n```"
	})
	return out
}

// stripInlineHandlers removes on<event>="..." attribute handlers.
func stripInlineHandlers(s string) string {
	return inlineHandlers.ReplaceAllString(s, "")
}

// ensureHTMLSkeleton wraps a fragment in a minimal document unless it already
// carries both <html> and <body> pairs.
func ensureHTMLSkeleton(s string) string {
	if htmlPair.MatchString(s) && bodyPair.MatchString(s) {
		return s
	}
	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0"/>
  <title>Preview</title>
  <style>html,body{margin:0;padding:0;}</style>
</head>
<body>
` + s + `
</body>
</html>`
}

// ensureDefaultExport synthesizes a default export for component modules that
// lack one: an existing App function wins, then a single uppercase const
// component, then raw markup gets a minimal functional scaffold.
func ensureDefaultExport(src string) string {
	if defaultExport.MatchString(src) {
		return src
	}
	if appFunc.MatchString(src) {
		return src + "\nexport default App;"
	}
	if m := constComp.FindStringSubmatch(src); m != nil {
		return src + "\nexport default " + m[1] + ";"
	}
	if rawMarkup.MatchString(src) {
		return "import React from 'react';\nfunction App(){\n  return (\n" + src + "\n  );\n}\nexport default App;"
	}
	return src
}
