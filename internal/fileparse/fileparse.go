// Package fileparse splits a generated artifact into individual files using
// comment markers. Agents are asked to return complete files with exact
// paths; the markers are how those paths travel inside one text blob.
package fileparse

import (
	"regexp"
	"strings"
)

// File is one named unit of a parsed artifact.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// A marker is an HTML, SQL or shell style comment carrying a path, e.g.
// "<!-- file: src/App.jsx -->", "-- file: schema.sql", "# file: README.md".
var marker = regexp.MustCompile(`(?i)(?:<!--|--|#)\s*file:\s*([\w./-]+)\s*(?:-->)?\s*\n?`)

// Parse splits code on file markers. Content before the first marker becomes
// an "untitled" file; code with no markers at all is treated as a single
// index.html. Blank input yields nothing.
func Parse(code string) []File {
	if strings.TrimSpace(code) == "" {
		return nil
	}

	matches := marker.FindAllStringSubmatchIndex(code, -1)
	if len(matches) == 0 {
		return []File{{Path: "index.html", Content: code}}
	}

	var files []File
	if lead := strings.TrimSpace(code[:matches[0][0]]); lead != "" {
		files = append(files, File{Path: "untitled", Content: lead})
	}

	for i, m := range matches {
		path := code[m[2]:m[3]]
		start := m[1]
		end := len(code)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(code[start:end])
		if path != "" && content != "" {
			files = append(files, File{Path: path, Content: content})
		}
	}

	if len(files) == 0 {
		return []File{{Path: "index.html", Content: code}}
	}
	return files
}
