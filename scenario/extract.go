// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// extract.go contains the extractors which pull values out of a step's
// response into the variable context.

package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Extractor pulls a single string value out of a response.
type Extractor interface {
	Extract(resp *StepResponse) (string, error)
}

// ----------------------------------------------------------------------------
// JSONPathExtractor

// JSONPathExtractor selects an element of a JSON body by a dotted path
// with optional zero-based array indices:
//
//	$.token
//	$.data.items[0].id
//
// The leading "$." is optional. Scalars are returned undecorated;
// strings lose their quotes, numbers and booleans are returned as
// their literal text. Non-scalar elements are returned as raw JSON.
type JSONPathExtractor struct {
	Path string
}

// Extract implements Extractor's Extract method.
func (e JSONPathExtractor) Extract(resp *StepResponse) (string, error) {
	elems, err := splitJSONPath(e.Path)
	if err != nil {
		return "", err
	}

	raw, err := findJSONElement([]byte(resp.BodyStr), elems)
	if err != nil {
		return "", err
	}

	// Unwrap scalar values.
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	case nil:
		return "", nil
	}
	return string(raw), nil
}

// splitJSONPath turns "$.a.b[0].c" into ["a", "b", "0", "c"].
func splitJSONPath(path string) ([]string, error) {
	p := strings.TrimPrefix(path, "$")
	p = strings.TrimPrefix(p, ".")
	if p == "" {
		return nil, fmt.Errorf("empty JSON path")
	}

	var elems []string
	for _, part := range strings.Split(p, ".") {
		for {
			open := strings.IndexByte(part, '[')
			if open == -1 {
				if part != "" {
					elems = append(elems, part)
				}
				break
			}
			end := strings.IndexByte(part, ']')
			if end < open {
				return nil, fmt.Errorf("unbalanced brackets in %q", path)
			}
			if open > 0 {
				elems = append(elems, part[:open])
			}
			idx := part[open+1 : end]
			if _, err := strconv.Atoi(idx); err != nil {
				return nil, fmt.Errorf("bad array index %q in %q", idx, path)
			}
			elems = append(elems, idx)
			part = part[end+1:]
		}
	}
	return elems, nil
}

// findJSONElement walks data along the given path elements. Numeric
// elements index arrays, everything else selects object fields.
func findJSONElement(data []byte, elems []string) ([]byte, error) {
	for e, elem := range elems {
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			return nil, fmt.Errorf("element %s not found", strings.Join(elems[:e+1], "."))
		}
		switch data[0] {
		case '[':
			var v []json.RawMessage
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			i, err := strconv.Atoi(elem)
			if err != nil {
				return nil, fmt.Errorf("%s is not a valid index", elem)
			}
			if i < 0 || i >= len(v) {
				return nil, fmt.Errorf("no index %d in array %s of len %d",
					i, strings.Join(elems[:e], "."), len(v))
			}
			data = []byte(v[i])
		case '{':
			var v map[string]json.RawMessage
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			raw, ok := v[elem]
			if !ok {
				return nil, fmt.Errorf("element %s not found",
					strings.Join(elems[:e+1], "."))
			}
			data = []byte(raw)
		default:
			return nil, fmt.Errorf("element %s not found",
				strings.Join(elems[:e+1], "."))
		}
	}
	return data, nil
}

// ----------------------------------------------------------------------------
// BodyExtractor

// BodyExtractor extracts a value from the uninterpreted response body
// via a regular expression.
type BodyExtractor struct {
	// Regexp is the regular expression to look for in the body.
	Regexp string

	// Submatch selects which capturing group of Regexp is returned.
	// 0 is the whole match.
	Submatch int
}

// Extract implements Extractor's Extract method.
func (e BodyExtractor) Extract(resp *StepResponse) (string, error) {
	re, err := regexp.Compile(e.Regexp)
	if err != nil {
		return "", err
	}
	if e.Submatch < 0 {
		return "", errors.New("BodyExtractor.Submatch < 0")
	}

	submatches := re.FindStringSubmatch(resp.BodyStr)
	if len(submatches) > e.Submatch {
		return submatches[e.Submatch], nil
	}
	return "", fmt.Errorf("got only %d submatches", len(submatches)-1)
}

// ----------------------------------------------------------------------------
// HTMLExtractor

// HTMLExtractor extracts an attribute value or the text content of the
// first element matching a CSS selector. Typical use is picking a CSRF
// token out of a login form:
//
//	<input type="hidden" name="_csrf" value="18f0ca3f..."/>
type HTMLExtractor struct {
	// Selector is the CSS selector of the element, e.g.
	//     form#login input[name="_csrf"]
	Selector string

	// Attribute is the attribute to read. The magic value "~text~"
	// refers to the element's text content.
	Attribute string
}

// Extract implements Extractor's Extract method.
func (e HTMLExtractor) Extract(resp *StepResponse) (string, error) {
	sel, err := cascadia.Compile(e.Selector)
	if err != nil {
		return "", err
	}
	doc, err := html.Parse(strings.NewReader(resp.BodyStr))
	if err != nil {
		return "", err
	}

	node := sel.MatchFirst(doc)
	if node == nil {
		return "", fmt.Errorf("could not find node %q", e.Selector)
	}
	if e.Attribute == "~text~" {
		return textContent(node), nil
	}
	for _, a := range node.Attr {
		if a.Key == e.Attribute {
			return a.Val, nil
		}
	}
	return "", fmt.Errorf("node %q has no attribute %q", e.Selector, e.Attribute)
}

// textContent returns the concatenated text of all text nodes below n.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}
